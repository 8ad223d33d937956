// Package service orchestrates the storage gateway: cached ungrouped
// listings, file maintenance, and the group commit workflow.
package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/printshelf/printshelf/internal/cache"
	"github.com/printshelf/printshelf/internal/gateway"
	"github.com/printshelf/printshelf/internal/metrics"
	"github.com/printshelf/printshelf/internal/model"
)

// ModelListingKey is the single cache key for the ungrouped-model listing.
const ModelListingKey = "3mf"

// Service holds the injected collaborators shared by all operations.
type Service struct {
	provider gateway.Provider
	cache    *cache.ListingCache
	logger   *slog.Logger
}

// New wires a Service.
func New(provider gateway.Provider, listings *cache.ListingCache, logger *slog.Logger) *Service {
	return &Service{provider: provider, cache: listings, logger: logger}
}

// ListUngroupedModels returns the model files whose derived output folder
// does not exist yet. Results are served from the listing cache when
// fresh; a miss triggers the model scan plus the cross-bucket prefix scan.
func (s *Service) ListUngroupedModels(ctx context.Context, accessToken string) ([]model.FileInfo, error) {
	if files, ok := s.cache.Get(ModelListingKey); ok {
		return files, nil
	}

	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	models, err := gw.ListModels(ctx)
	if err != nil {
		metrics.Operations.WithLabelValues("list_models", "error").Inc()
		return nil, err
	}
	folders, err := gw.ListGroupedFolders(ctx)
	if err != nil {
		metrics.Operations.WithLabelValues("list_models", "error").Inc()
		return nil, err
	}

	grouped := make(map[string]bool, len(folders))
	for _, f := range folders {
		grouped[f] = true
	}

	ungrouped := make([]model.FileInfo, 0, len(models))
	for _, m := range models {
		if grouped[OutputFolderName(m.Name)] {
			continue
		}
		ungrouped = append(ungrouped, m)
	}

	s.cache.Put(ModelListingKey, ungrouped)
	metrics.Operations.WithLabelValues("list_models", "ok").Inc()
	return ungrouped, nil
}

// ListImages returns every image in the image bucket. Image listings are
// never cached.
func (s *Service) ListImages(ctx context.Context, accessToken string) ([]model.FileInfo, error) {
	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return gw.ListImages(ctx)
}

// OpenModel opens a model object for streaming.
func (s *Service) OpenModel(ctx context.Context, accessToken, name string) (io.ReadCloser, error) {
	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return gw.OpenModel(ctx, name)
}

// OpenImage opens an image object for streaming.
func (s *Service) OpenImage(ctx context.Context, accessToken, name string) (io.ReadCloser, error) {
	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return gw.OpenImage(ctx, name)
}

// DeleteModel removes a model object, then cleans up any output folder
// sharing its derived name. The folder cleanup is best-effort: a failure
// is logged, not surfaced, since the model itself is already gone.
func (s *Service) DeleteModel(ctx context.Context, accessToken, name string) error {
	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := gw.DeleteModel(ctx, name); err != nil {
		metrics.Operations.WithLabelValues("delete_model", "error").Inc()
		return err
	}
	s.cache.Invalidate(ModelListingKey)

	folder := OutputFolderName(name)
	if err := gw.DeleteOutputFolder(ctx, folder); err != nil {
		s.logger.Warn("output folder cleanup failed after model delete",
			slog.String("model", name), slog.String("folder", folder), slog.Any("error", err))
	}

	metrics.Operations.WithLabelValues("delete_model", "ok").Inc()
	return nil
}

// RenameModel moves a model via copy-then-delete; GCS has no atomic
// rename. When the copy succeeded but the delete failed, both objects
// exist and a DeletePendingError reports exactly that so callers can
// reconcile.
func (s *Service) RenameModel(ctx context.Context, accessToken, oldName, newName string) error {
	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := gw.CopyModel(ctx, oldName, newName); err != nil {
		metrics.Operations.WithLabelValues("rename_model", "error").Inc()
		return err
	}
	// The new object is visible from here on, so the listing is stale
	// regardless of how the delete goes.
	s.cache.Invalidate(ModelListingKey)

	if err := gw.DeleteModel(ctx, oldName); err != nil {
		metrics.Operations.WithLabelValues("rename_model", "error").Inc()
		return &gateway.DeletePendingError{Copied: newName, Pending: oldName, Err: err}
	}

	metrics.Operations.WithLabelValues("rename_model", "ok").Inc()
	return nil
}

// DeleteImage removes a single image object. The image listing is never
// cached, so no invalidation is needed.
func (s *Service) DeleteImage(ctx context.Context, accessToken, name string) error {
	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := gw.DeleteImage(ctx, name); err != nil {
		metrics.Operations.WithLabelValues("delete_image", "error").Inc()
		return err
	}
	metrics.Operations.WithLabelValues("delete_image", "ok").Inc()
	return nil
}
