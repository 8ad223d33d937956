// Package gateway defines the storage facade used by the services. The
// abstraction keeps the workflow code independent of the object-storage
// vendor: the GCS implementation lives in gateway/gcs, an in-memory fake
// for tests and development in gateway/memory.
package gateway

import (
	"context"
	"io"

	"github.com/printshelf/printshelf/internal/model"
)

// Gateway issues object-storage operations against the three logical
// buckets (models, images, output) on behalf of one credential.
type Gateway interface {
	// ListModels returns every .3mf object in the model bucket, except
	// objects under the archival prefix.
	ListModels(ctx context.Context) ([]model.FileInfo, error)

	// ListImages returns every raster image under the configured image
	// folder prefix.
	ListImages(ctx context.Context) ([]model.FileInfo, error)

	// ListGroupedFolders returns the top-level folder names present in the
	// output bucket.
	ListGroupedFolders(ctx context.Context) ([]string, error)

	// OpenModel and OpenImage return sequential readers over a single
	// object. The caller streams to the response and must close the reader.
	OpenModel(ctx context.Context, name string) (io.ReadCloser, error)
	OpenImage(ctx context.Context, name string) (io.ReadCloser, error)

	// CopyModelToOutput copies a model into destFolder under its original
	// name. CopyImageToOutput copies an image into destFolder under
	// destFileName. Both fail if the source is absent.
	CopyModelToOutput(ctx context.Context, sourceName, destFolder string) error
	CopyImageToOutput(ctx context.Context, sourceName, destFolder, destFileName string) error

	// CopyModel copies a model object within the model bucket.
	CopyModel(ctx context.Context, sourceName, destName string) error

	// DeleteModel and DeleteImage remove a single object; deleting an
	// absent object is an error.
	DeleteModel(ctx context.Context, name string) error
	DeleteImage(ctx context.Context, name string) error

	// DeleteOutputFolder removes every object under the folder prefix in
	// the output bucket. Deleting an absent folder is a no-op.
	DeleteOutputFolder(ctx context.Context, folder string) error

	// DeleteOutputObject removes a single object from the output bucket.
	// Used by the commit workflow's compensating cleanup.
	DeleteOutputObject(ctx context.Context, name string) error
}

// Provider returns a Gateway bound to the given access token. GCS gateway
// instances are cached per token for a bounded window.
type Provider interface {
	Gateway(ctx context.Context, accessToken string) (Gateway, error)
}
