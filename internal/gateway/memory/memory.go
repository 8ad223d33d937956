// Package memory implements the storage gateway on in-process maps. It is
// used by tests and by local development without GCS credentials.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/printshelf/printshelf/internal/gateway"
	"github.com/printshelf/printshelf/internal/model"
)

const modelExt = ".3mf"
const archivePrefix = "archive/"

var imageExtPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

type object struct {
	data    []byte
	updated time.Time
}

// Store implements gateway.Gateway over three in-memory "buckets".
// Exported Fail* hooks let tests inject failures at specific points of a
// workflow; they are nil in normal operation.
type Store struct {
	mu          sync.Mutex
	models      map[string]object
	images      map[string]object
	output      map[string]object
	imageFolder string
	now         func() time.Time

	// Operation counters for cache-behavior tests.
	ListModelsCalls         int
	ListGroupedFoldersCalls int

	FailCopyModelToOutput func(sourceName string) error
	FailCopyImageToOutput func(sourceName string) error
	FailDeleteModel       func(name string) error
	FailDeleteImage       func(name string) error
}

// New returns an empty Store filtering image listings by imageFolder.
func New(imageFolder string) *Store {
	return &Store{
		models:      make(map[string]object),
		images:      make(map[string]object),
		output:      make(map[string]object),
		imageFolder: imageFolder,
		now:         time.Now,
	}
}

// PutModel seeds a model object.
func (s *Store) PutModel(name string, data []byte) {
	s.mu.Lock()
	s.models[name] = object{data: data, updated: s.now()}
	s.mu.Unlock()
}

// PutImage seeds an image object.
func (s *Store) PutImage(name string, data []byte) {
	s.mu.Lock()
	s.images[name] = object{data: data, updated: s.now()}
	s.mu.Unlock()
}

// PutOutput seeds an output object.
func (s *Store) PutOutput(name string, data []byte) {
	s.mu.Lock()
	s.output[name] = object{data: data, updated: s.now()}
	s.mu.Unlock()
}

// ModelNames returns the sorted keys of the model bucket.
func (s *Store) ModelNames() []string { return s.names(&s.models) }

// ImageNames returns the sorted keys of the image bucket.
func (s *Store) ImageNames() []string { return s.names(&s.images) }

// OutputNames returns the sorted keys of the output bucket.
func (s *Store) OutputNames() []string { return s.names(&s.output) }

func (s *Store) names(bucket *map[string]object) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(*bucket))
	for n := range *bucket {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Store) ListModels(_ context.Context) ([]model.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListModelsCalls++

	var files []model.FileInfo
	for name, o := range s.models {
		if strings.HasPrefix(name, archivePrefix) {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), modelExt) {
			continue
		}
		files = append(files, model.FileInfo{Name: name, Size: int64(len(o.data)), Updated: o.updated})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Store) ListImages(_ context.Context) ([]model.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []model.FileInfo
	for name, o := range s.images {
		if s.imageFolder != "" && !strings.HasPrefix(name, s.imageFolder) {
			continue
		}
		if !imageExtPattern.MatchString(name) {
			continue
		}
		files = append(files, model.FileInfo{Name: name, Size: int64(len(o.data)), Updated: o.updated})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Store) ListGroupedFolders(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListGroupedFoldersCalls++

	seen := map[string]bool{}
	for name := range s.output {
		if i := strings.Index(name, "/"); i > 0 {
			seen[name[:i]] = true
		}
	}
	folders := make([]string, 0, len(seen))
	for f := range seen {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders, nil
}

func (s *Store) OpenModel(_ context.Context, name string) (io.ReadCloser, error) {
	return s.open(&s.models, name)
}

func (s *Store) OpenImage(_ context.Context, name string) (io.ReadCloser, error) {
	return s.open(&s.images, name)
}

func (s *Store) open(bucket *map[string]object, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := (*bucket)[name]
	if !ok {
		return nil, fmt.Errorf("open %q: %w", name, gateway.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(o.data)), nil
}

func (s *Store) CopyModelToOutput(_ context.Context, sourceName, destFolder string) error {
	if s.FailCopyModelToOutput != nil {
		if err := s.FailCopyModelToOutput(sourceName); err != nil {
			return err
		}
	}
	return s.copy(&s.models, sourceName, &s.output, destFolder+"/"+sourceName)
}

func (s *Store) CopyImageToOutput(_ context.Context, sourceName, destFolder, destFileName string) error {
	if s.FailCopyImageToOutput != nil {
		if err := s.FailCopyImageToOutput(sourceName); err != nil {
			return err
		}
	}
	return s.copy(&s.images, sourceName, &s.output, destFolder+"/"+destFileName)
}

func (s *Store) CopyModel(_ context.Context, sourceName, destName string) error {
	return s.copy(&s.models, sourceName, &s.models, destName)
}

func (s *Store) copy(src *map[string]object, srcName string, dst *map[string]object, dstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := (*src)[srcName]
	if !ok {
		return fmt.Errorf("copy %q: %w", srcName, gateway.ErrNotFound)
	}
	(*dst)[dstName] = object{data: append([]byte(nil), o.data...), updated: s.now()}
	return nil
}

func (s *Store) DeleteModel(_ context.Context, name string) error {
	if s.FailDeleteModel != nil {
		if err := s.FailDeleteModel(name); err != nil {
			return err
		}
	}
	return s.delete(&s.models, name)
}

func (s *Store) DeleteImage(_ context.Context, name string) error {
	if s.FailDeleteImage != nil {
		if err := s.FailDeleteImage(name); err != nil {
			return err
		}
	}
	return s.delete(&s.images, name)
}

func (s *Store) DeleteOutputObject(_ context.Context, name string) error {
	return s.delete(&s.output, name)
}

func (s *Store) delete(bucket *map[string]object, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := (*bucket)[name]; !ok {
		return fmt.Errorf("delete %q: %w", name, gateway.ErrNotFound)
	}
	delete(*bucket, name)
	return nil
}

func (s *Store) DeleteOutputFolder(_ context.Context, folder string) error {
	prefix := strings.TrimSuffix(folder, "/") + "/"

	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.output {
		if strings.HasPrefix(name, prefix) {
			delete(s.output, name)
		}
	}
	return nil
}

// Provider hands out the same Store for every token, mirroring how a
// single shared backend looks to the handler layer.
type Provider struct {
	store *Store
}

// NewProvider wraps a Store as a gateway.Provider.
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

func (p *Provider) Gateway(_ context.Context, _ string) (gateway.Gateway, error) {
	return p.store, nil
}
