package object

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilesystemStore is a Store backed by a local directory tree. Grounded on
// pkg/storage/filesystem.go's FileSystemStorage (os.MkdirAll / os.WriteFile
// / os.ReadFile shape), generalised from its module/version JSON-file
// layout to an arbitrary path-addressed object API.
type FilesystemStore struct {
	rootDir string
}

// NewFilesystemStore creates a FilesystemStore rooted at rootDir, creating
// it if absent.
func NewFilesystemStore(rootDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemStore{rootDir: rootDir}, nil
}

// Capabilities reports the filesystem backend's capability flags: it has
// independent directory objects (a directory exists even without a body)
// and no native content-type metadata, so callers rely on the alt-fat-meta
// sidecar to recover content-type on read.
func (s *FilesystemStore) Capabilities() Capabilities {
	return Capabilities{
		Stat: true, Read: true, ReadWithRange: true, List: true,
		ListWithDelimiterSlash: true, Write: true, Delete: true,
		HasIndependentDirObjects:          true,
		SupportsNativeContentTypeMetadata: false,
	}
}

func (s *FilesystemStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean("/" + path)
	full := filepath.Join(s.rootDir, cleaned)
	if !strings.HasPrefix(full, filepath.Clean(s.rootDir)) {
		return "", os.ErrInvalid
	}
	return full, nil
}

// Stat returns the metadata for the object at path.
func (s *FilesystemStore) Stat(_ context.Context, path string) (Metadata, error) {
	full, err := s.resolve(path)
	if err != nil {
		return Metadata{}, err
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return Metadata{}, ErrNotFound
	}
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Path:          path,
		ContentLength: info.Size(),
		LastModified:  info.ModTime(),
	}, nil
}

// Read opens the object at path, optionally seeking to rng.Offset and
// limiting to rng.Length bytes.
func (s *FilesystemStore) Read(_ context.Context, path string, rng *ByteRange) (Metadata, io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return Metadata{}, nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return Metadata{}, nil, ErrNotFound
	}
	if err != nil {
		return Metadata{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Metadata{}, nil, err
	}
	meta := Metadata{Path: path, ContentLength: info.Size(), LastModified: info.ModTime()}
	if rng == nil {
		return meta, f, nil
	}
	if _, err := f.Seek(rng.Offset, io.SeekStart); err != nil {
		f.Close()
		return Metadata{}, nil, err
	}
	if rng.Length < 0 {
		return meta, f, nil
	}
	return meta, &limitedReadCloser{io.LimitReader(f, rng.Length), f}, nil
}

type limitedReadCloser struct {
	io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Close() error { return l.c.Close() }

// Write stores r's content at path, creating parent directories as needed.
func (s *FilesystemStore) Write(_ context.Context, path string, r io.Reader, _ string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

// List enumerates objects whose path is prefixed by nsPath.
func (s *FilesystemStore) List(_ context.Context, nsPath string) ([]Entry, error) {
	full, err := s.resolve(nsPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		childPath := strings.TrimSuffix(nsPath, "/") + "/" + e.Name()
		out = append(out, Entry{
			Path:        childPath,
			Meta:        Metadata{Path: childPath, ContentLength: info.Size(), LastModified: info.ModTime()},
			IsContainer: e.IsDir(),
		})
	}
	return out, nil
}

// Delete removes the object at path.
func (s *FilesystemStore) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	err = os.RemoveAll(full)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CreateNS creates the directory marker for path.
func (s *FilesystemStore) CreateNS(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

var _ Store = (*FilesystemStore)(nil)

// lastModifiedOrNow is a small helper shared by backends when an object's
// timestamp cannot be determined.
func lastModifiedOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
