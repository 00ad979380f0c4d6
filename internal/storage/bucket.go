// Package storage implements the "files" object bucket on local disk and
// the signed URLs that grant temporary read access to its objects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/observability"

	"github.com/google/uuid"
)

// BucketName is the single bucket every file object lives in.
const BucketName = "files"

const previewPrefix = "previews/"

// objectExt is the only extension shape kept on object paths.
var objectExt = regexp.MustCompile(`^\.[a-z0-9]{1,15}$`)

var (
	ErrObjectNotFound = errors.New("storage object not found")
	ErrInvalidPath    = errors.New("invalid storage path")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Bucket is an object store addressed by opaque paths.
type Bucket interface {
	Name() string
	Put(ctx context.Context, objectPath string, r io.Reader) (int64, error)
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Stat(ctx context.Context, objectPath string) (*ObjectInfo, error)
	Remove(ctx context.Context, objectPaths ...string) error
}

// NewObjectPath returns a fresh opaque path that keeps the lowercased
// extension of the original file name.
func NewObjectPath(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !objectExt.MatchString(ext) {
		ext = ""
	}
	return uuid.New().String() + ext
}

// PreviewPathFor returns the preview object path for a stored object.
func PreviewPathFor(objectPath string) string {
	base := strings.TrimSuffix(objectPath, path.Ext(objectPath))
	return previewPrefix + base + ".webp"
}

// ValidObjectPath reports whether p is a flat object name, optionally under previews/.
func ValidObjectPath(p string) bool {
	name := strings.TrimPrefix(p, previewPrefix)
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return !strings.HasPrefix(name, ".")
}

// LocalBucket stores objects under <root>/files on the local filesystem.
type LocalBucket struct {
	dir string
}

// NewLocalBucket creates the bucket directories under root if needed.
func NewLocalBucket(root string) (*LocalBucket, error) {
	dir := filepath.Join(root, BucketName)
	if err := os.MkdirAll(filepath.Join(dir, strings.TrimSuffix(previewPrefix, "/")), 0o750); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	return &LocalBucket{dir: dir}, nil
}

func (b *LocalBucket) Name() string {
	return BucketName
}

func (b *LocalBucket) resolve(objectPath string) (string, error) {
	if !ValidObjectPath(objectPath) {
		return "", ErrInvalidPath
	}
	return filepath.Join(b.dir, filepath.FromSlash(objectPath)), nil
}

// Put writes r to a temporary file and renames it into place, so readers
// never observe a partial object.
func (b *LocalBucket) Put(ctx context.Context, objectPath string, r io.Reader) (n int64, err error) {
	ctx, span := observability.StartStorageSpan(ctx, "put", objectPath)
	defer func() {
		if err != nil {
			observability.StorageErrorsTotal.WithLabelValues("put").Inc()
			observability.RecordError(span, err)
		}
		span.End()
	}()

	full, err := b.resolve(objectPath)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp object: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write object: %w", err)
	}

	if err = os.Rename(tmp.Name(), full); err != nil {
		return 0, fmt.Errorf("commit object: %w", err)
	}
	return n, nil
}

func (b *LocalBucket) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	_, span := observability.StartStorageSpan(ctx, "open", objectPath)
	defer span.End()

	full, err := b.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		observability.StorageErrorsTotal.WithLabelValues("open").Inc()
		observability.RecordError(span, err)
		return nil, err
	}
	return f, nil
}

func (b *LocalBucket) Stat(_ context.Context, objectPath string) (*ObjectInfo, error) {
	full, err := b.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ObjectInfo{Path: objectPath, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// Remove deletes every listed object. Missing objects are not an error;
// the first real failure is returned after all paths were attempted.
func (b *LocalBucket) Remove(ctx context.Context, objectPaths ...string) error {
	_, span := observability.StartStorageSpan(ctx, "remove", strings.Join(objectPaths, ","))
	defer span.End()

	var errs []error
	for _, p := range objectPaths {
		full, err := b.resolve(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		observability.StorageErrorsTotal.WithLabelValues("remove").Inc()
		observability.RecordError(span, err)
	}
	return err
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
