// Package gcs implements the storage gateway on Google Cloud Storage using
// the caller's OAuth access token.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/printshelf/printshelf/internal/gateway"
	"github.com/printshelf/printshelf/internal/model"
)

const modelExt = ".3mf"

// archivePrefix marks models that were moved aside; they never appear in
// listings.
const archivePrefix = "archive/"

var imageExtPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

// Buckets names the three logical buckets the gateway operates on.
type Buckets struct {
	Models string
	Images string
	Output string
}

// Client implements gateway.Gateway against GCS. One Client is bound to a
// single user's access token.
type Client struct {
	svc         *storage.Service
	buckets     Buckets
	imageFolder string
}

// New builds a Client whose requests authenticate via ts.
func New(ctx context.Context, ts oauth2.TokenSource, buckets Buckets, imageFolder string) (*Client, error) {
	svc, err := storage.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return &Client{svc: svc, buckets: buckets, imageFolder: imageFolder}, nil
}

func (c *Client) ListModels(ctx context.Context) ([]model.FileInfo, error) {
	var files []model.FileInfo
	err := c.svc.Objects.List(c.buckets.Models).Pages(ctx, func(objs *storage.Objects) error {
		for _, o := range objs.Items {
			if strings.HasPrefix(o.Name, archivePrefix) {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(o.Name), modelExt) {
				continue
			}
			files = append(files, toFileInfo(o))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return files, nil
}

func (c *Client) ListImages(ctx context.Context) ([]model.FileInfo, error) {
	var files []model.FileInfo
	call := c.svc.Objects.List(c.buckets.Images)
	if c.imageFolder != "" {
		call = call.Prefix(c.imageFolder)
	}
	err := call.Pages(ctx, func(objs *storage.Objects) error {
		for _, o := range objs.Items {
			if !imageExtPattern.MatchString(o.Name) {
				continue
			}
			files = append(files, toFileInfo(o))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return files, nil
}

func (c *Client) ListGroupedFolders(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	err := c.svc.Objects.List(c.buckets.Output).Delimiter("/").Pages(ctx, func(objs *storage.Objects) error {
		for _, p := range objs.Prefixes {
			seen[strings.TrimSuffix(p, "/")] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list grouped folders: %w", err)
	}

	folders := make([]string, 0, len(seen))
	for f := range seen {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders, nil
}

func (c *Client) OpenModel(ctx context.Context, name string) (io.ReadCloser, error) {
	return c.open(ctx, c.buckets.Models, name)
}

func (c *Client) OpenImage(ctx context.Context, name string) (io.ReadCloser, error) {
	return c.open(ctx, c.buckets.Images, name)
}

func (c *Client) open(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	resp, err := c.svc.Objects.Get(bucket, name).Context(ctx).Download()
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("open %s/%s", bucket, name), err)
	}
	return resp.Body, nil
}

func (c *Client) CopyModelToOutput(ctx context.Context, sourceName, destFolder string) error {
	return c.copy(ctx, c.buckets.Models, sourceName, c.buckets.Output, destFolder+"/"+sourceName)
}

func (c *Client) CopyImageToOutput(ctx context.Context, sourceName, destFolder, destFileName string) error {
	return c.copy(ctx, c.buckets.Images, sourceName, c.buckets.Output, destFolder+"/"+destFileName)
}

func (c *Client) CopyModel(ctx context.Context, sourceName, destName string) error {
	return c.copy(ctx, c.buckets.Models, sourceName, c.buckets.Models, destName)
}

func (c *Client) copy(ctx context.Context, srcBucket, srcName, dstBucket, dstName string) error {
	_, err := c.svc.Objects.Copy(srcBucket, srcName, dstBucket, dstName, &storage.Object{}).Context(ctx).Do()
	if err != nil {
		return wrapErr(fmt.Sprintf("copy %s/%s to %s/%s", srcBucket, srcName, dstBucket, dstName), err)
	}
	return nil
}

func (c *Client) DeleteModel(ctx context.Context, name string) error {
	return c.delete(ctx, c.buckets.Models, name)
}

func (c *Client) DeleteImage(ctx context.Context, name string) error {
	return c.delete(ctx, c.buckets.Images, name)
}

func (c *Client) DeleteOutputObject(ctx context.Context, name string) error {
	return c.delete(ctx, c.buckets.Output, name)
}

func (c *Client) delete(ctx context.Context, bucket, name string) error {
	if err := c.svc.Objects.Delete(bucket, name).Context(ctx).Do(); err != nil {
		return wrapErr(fmt.Sprintf("delete %s/%s", bucket, name), err)
	}
	return nil
}

func (c *Client) DeleteOutputFolder(ctx context.Context, folder string) error {
	prefix := strings.TrimSuffix(folder, "/") + "/"

	var names []string
	err := c.svc.Objects.List(c.buckets.Output).Prefix(prefix).Pages(ctx, func(objs *storage.Objects) error {
		for _, o := range objs.Items {
			names = append(names, o.Name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list output folder %q: %w", folder, err)
	}

	for _, name := range names {
		if err := c.delete(ctx, c.buckets.Output, name); err != nil {
			return err
		}
	}
	return nil
}

func toFileInfo(o *storage.Object) model.FileInfo {
	updated, _ := time.Parse(time.RFC3339, o.Updated)
	return model.FileInfo{
		Name:    o.Name,
		Size:    int64(o.Size),
		Updated: updated,
	}
}

// wrapErr maps a GCS 404 onto gateway.ErrNotFound and wraps everything
// else with the operation description.
func wrapErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 404 {
		return fmt.Errorf("%s: %w", op, gateway.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
