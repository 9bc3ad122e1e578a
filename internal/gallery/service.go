package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/sitecraft/pkg/logging"
)

// Prefix is the key prefix for every gallery object.
const Prefix = "gallery/"

var (
	// ErrInvalidCategory is returned when a category is blank or contains a path separator.
	ErrInvalidCategory = errors.New("gallery: category is required")

	// ErrInvalidName is returned for blank or path-like file names.
	ErrInvalidName = errors.New("gallery: file name is required")

	// ErrUnsupportedType is returned for uploads that are not images.
	ErrUnsupportedType = errors.New("gallery: only image uploads are accepted")

	// ErrTooLarge is returned when an upload exceeds the configured cap.
	ErrTooLarge = errors.New("gallery: upload exceeds size limit")
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Item is a single example site screenshot.
type Item struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url"`
}

// Category groups the examples of one business category.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Service lists and manages example-site images.
type Service struct {
	store     ObjectStore
	expiry    time.Duration
	maxUpload int64
	logger    *logging.Logger
}

// NewService creates a gallery service over store.
func NewService(store ObjectStore, expiry time.Duration, maxUpload int64, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &Service{store: store, expiry: expiry, maxUpload: maxUpload, logger: logger}
}

// MaxUpload returns the upload size cap in bytes.
func (s *Service) MaxUpload() int64 { return s.maxUpload }

// Categories returns every category with presigned URLs, sorted by name.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	objects, err := s.store.List(ctx, Prefix)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]Item)
	for _, obj := range objects {
		category, name, ok := splitKey(obj.Key)
		if !ok || !isImageName(name) {
			continue
		}
		url, err := s.store.PresignGet(ctx, obj.Key, s.expiry)
		if err != nil {
			s.logger.Warn("gallery presign failed", "key", obj.Key, "error", err)
			continue
		}
		grouped[category] = append(grouped[category], Item{Name: name, Key: obj.Key, URL: url})
	}

	out := make([]Category, 0, len(grouped))
	for name, items := range grouped {
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		out = append(out, Category{Name: name, Items: items})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upload stores an image under gallery/{category}/{name}.
func (s *Service) Upload(ctx context.Context, category, name, contentType string, size int64, r io.Reader) (*Item, error) {
	key, err := Key(category, name)
	if err != nil {
		return nil, err
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	// Categories only lists image-named objects, so both checks must pass.
	if !imageTypes[contentType] || !isImageName(name) {
		return nil, ErrUnsupportedType
	}
	if size > s.maxUpload {
		return nil, ErrTooLarge
	}
	if err := s.store.Put(ctx, key, io.LimitReader(r, s.maxUpload), size, contentType); err != nil {
		return nil, err
	}
	s.logger.Info("gallery image uploaded", "key", key, "bytes", size)

	url, err := s.store.PresignGet(ctx, key, s.expiry)
	if err != nil {
		return nil, err
	}
	_, base, _ := splitKey(key)
	return &Item{Name: base, Key: key, URL: url}, nil
}

// Remove deletes gallery/{category}/{name}.
func (s *Service) Remove(ctx context.Context, category, name string) error {
	key, err := Key(category, name)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, key)
}

// Key builds the object key for a category and file name.
func Key(category, name string) (string, error) {
	category = strings.TrimSpace(category)
	name = strings.TrimSpace(name)
	if category == "" || strings.ContainsAny(category, "/\\") || category == "." || category == ".." {
		return "", ErrInvalidCategory
	}
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return fmt.Sprintf("%s%s/%s", Prefix, category, name), nil
}

// IsInvalid reports whether err is a caller-input error.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrTooLarge)
}

func splitKey(key string) (category, name string, ok bool) {
	rest, found := strings.CutPrefix(key, Prefix)
	if !found {
		return "", "", false
	}
	category, name, found = strings.Cut(rest, "/")
	if !found || category == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return category, name, true
}

func isImageName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}
