package image

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/apperr"
	"github.com/iyhunko/product-catalog/internal/metrics"
)

const (
	DefaultMaxSize   = 5 * 1024 * 1024
	DefaultKeyPrefix = "products"
	DefaultTimeout   = 15 * time.Second

	maxSlugLength = 40
)

var (
	keySegment  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
)

// Options configures a Manager.
type Options struct {
	MaxSize      int64
	AllowedTypes []string
	// PublicBaseURL is prepended to object keys to build references, e.g. https://bucket.s3.amazonaws.com or /uploads.
	PublicBaseURL string
	KeyPrefix     string
	Timeout       time.Duration
}

// Manager validates, stores and removes product images.
type Manager struct {
	store    ObjectStore
	maxSize  int64
	allowed  map[Format]struct{}
	baseURL  string
	prefix   string
	timeout  time.Duration
	now      func() time.Time
	randomID func() string
}

// NewManager creates a Manager on top of store.
func NewManager(store ObjectStore, opts Options) (*Manager, error) {
	m := &Manager{
		store:    store,
		maxSize:  opts.MaxSize,
		allowed:  make(map[Format]struct{}),
		baseURL:  strings.TrimRight(opts.PublicBaseURL, "/"),
		prefix:   strings.Trim(opts.KeyPrefix, "/"),
		timeout:  opts.Timeout,
		now:      time.Now,
		randomID: uuid.NewString,
	}
	if m.maxSize <= 0 {
		m.maxSize = DefaultMaxSize
	}
	if m.prefix == "" {
		m.prefix = DefaultKeyPrefix
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}

	types := opts.AllowedTypes
	if len(types) == 0 {
		types = []string{string(JPEG), string(PNG), string(WebP)}
	}
	for _, name := range types {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		m.allowed[f] = struct{}{}
	}
	return m, nil
}

// MaxSize returns the upload ceiling in bytes.
func (m *Manager) MaxSize() int64 {
	return m.maxSize
}

// Validate checks buf by its leading bytes, never by a claimed content type.
func (m *Manager) Validate(buf []byte) (Format, error) {
	if len(buf) == 0 {
		return "", apperr.NewValidationError("image", "is empty")
	}
	if int64(len(buf)) > m.maxSize {
		return "", apperr.NewValidationError("image", fmt.Sprintf("exceeds the maximum size of %d bytes", m.maxSize))
	}
	f, ok := Detect(buf)
	if !ok {
		return "", apperr.NewValidationError("image", "is not a recognised JPEG, PNG or WebP file")
	}
	if _, ok := m.allowed[f]; !ok {
		return "", apperr.NewValidationError("image", fmt.Sprintf("type %s is not allowed", f))
	}
	return f, nil
}

// Store validates buf and persists it unmodified under a fresh unique key. It returns the public reference.
//
// Once the write is issued it runs to completion under its own timeout even if ctx is cancelled.
func (m *Manager) Store(ctx context.Context, buf []byte, nameHint string) (string, error) {
	f, err := m.Validate(buf)
	if err != nil {
		metrics.ImagesRejected.Inc()
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", apperr.Infrastructure("store image", err)
	}

	key := m.newKey(f, nameHint)
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	if err := m.store.Put(writeCtx, key, buf, f.ContentType()); err != nil {
		return "", apperr.Infrastructure("store image", err)
	}

	metrics.ImagesStored.Inc()
	slog.Info("image stored", slog.String("key", key), slog.Int("size", len(buf)))
	return m.reference(key), nil
}

// Remove deletes the object behind ref. References outside the managed namespace are ignored,
// and removing an object that is already gone succeeds.
func (m *Manager) Remove(ctx context.Context, ref string) error {
	key, ok := m.KeyOf(ref)
	if !ok {
		slog.Debug("skipping removal of unmanaged image", slog.String("reference", ref))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.store.Delete(ctx, key); err != nil {
		return apperr.Infrastructure("remove image", err)
	}
	slog.Info("image removed", slog.String("key", key))
	return nil
}

// KeyOf resolves ref to an object key when it belongs to the managed store.
func (m *Manager) KeyOf(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	var key string
	switch {
	case m.baseURL != "" && strings.HasPrefix(ref, m.baseURL+"/"):
		key = strings.TrimPrefix(ref, m.baseURL+"/")
	case !strings.Contains(ref, "://") && !strings.HasPrefix(ref, "/"):
		key = ref
	default:
		return "", false
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}

	parts := strings.Split(key, "/")
	prefixParts := strings.Split(m.prefix, "/")
	if len(parts) <= len(prefixParts) {
		return "", false
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return "", false
		}
	}
	for _, p := range parts[len(prefixParts):] {
		if p == "." || p == ".." || !keySegment.MatchString(p) {
			return "", false
		}
	}
	return key, true
}

func (m *Manager) reference(key string) string {
	if m.baseURL == "" {
		return key
	}
	return m.baseURL + "/" + key
}

func (m *Manager) newKey(f Format, nameHint string) string {
	name := fmt.Sprintf("%s-%s", m.now().UTC().Format("20060102T150405Z"), m.randomID())
	if slug := slugify(nameHint); slug != "" {
		name += "-" + slug
	}
	return path.Join(m.prefix, name+f.Extension())
}

func slugify(hint string) string {
	hint = strings.TrimSuffix(hint, path.Ext(hint))
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(hint), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
