package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/printshelf/printshelf/internal/gateway"
	"github.com/printshelf/printshelf/internal/metrics"
	"github.com/printshelf/printshelf/internal/model"
)

// CommitGroup creates the output folder for a model and its chosen images.
//
// The workflow is copy-all-then-delete: the model and every image are
// copied into the output folder first, and the consumed source images are
// deleted only after every copy succeeded. If a copy fails, objects
// already copied are removed from the output folder best-effort and the
// commit fails with no sources lost. A failure during the delete phase
// leaves sources and output both present; the grouped-folder exclusion
// already hides the model, and retrying the deletes is safe.
//
// Returns the output folder name on success.
func (s *Service) CommitGroup(ctx context.Context, accessToken string, req model.GroupRequest) (string, error) {
	gw, err := s.provider.Gateway(ctx, accessToken)
	if err != nil {
		return "", err
	}

	folder := OutputFolderName(req.ThreeMfName)
	commitID := uuid.New().String()
	log := s.logger.With(slog.String("commit_id", commitID), slog.String("folder", folder))

	// Copy phase.
	var copied []string
	if err := gw.CopyModelToOutput(ctx, req.ThreeMfName, folder); err != nil {
		metrics.Operations.WithLabelValues("commit_group", "error").Inc()
		return "", fmt.Errorf("copy model %q: %w", req.ThreeMfName, err)
	}
	copied = append(copied, folder+"/"+req.ThreeMfName)

	for _, img := range req.Images {
		destName := destImageFileName(img)
		if err := gw.CopyImageToOutput(ctx, img.OriginalName, folder, destName); err != nil {
			s.compensate(ctx, gw, log, copied)
			metrics.Operations.WithLabelValues("commit_group", "error").Inc()
			return "", fmt.Errorf("copy image %q: %w", img.OriginalName, err)
		}
		copied = append(copied, folder+"/"+destName)
	}

	// Every copy landed; the output folder exists and the model is now
	// grouped, so the listing is stale whatever happens below.
	s.cache.Invalidate(ModelListingKey)

	// Delete phase. No compensation here: removing the output folder
	// after sources were partially deleted would lose data.
	for _, img := range req.Images {
		if err := gw.DeleteImage(ctx, img.OriginalName); err != nil {
			log.Error("source image cleanup failed after commit",
				slog.String("image", img.OriginalName), slog.Any("error", err))
			metrics.Operations.WithLabelValues("commit_group", "error").Inc()
			return "", fmt.Errorf("group %q committed but deleting source %q failed: %w", folder, img.OriginalName, err)
		}
	}

	log.Info("group committed", slog.Int("images", len(req.Images)))
	metrics.Operations.WithLabelValues("commit_group", "ok").Inc()
	return folder, nil
}

// compensate removes output objects copied by a failed commit. Errors are
// logged and swallowed; leftover output objects only hide the model from
// the ungrouped listing until cleaned up manually.
func (s *Service) compensate(ctx context.Context, gw gateway.Gateway, log *slog.Logger, copied []string) {
	for _, name := range copied {
		if err := gw.DeleteOutputObject(ctx, name); err != nil {
			log.Warn("compensating delete failed", slog.String("object", name), slog.Any("error", err))
		}
	}
}
