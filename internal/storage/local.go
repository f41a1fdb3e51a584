package storage

import (
	"context"
	"os"
	"path/filepath"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/s3"
)

// LocalStore keeps documents under a directory on the local filesystem
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStore) UploadDocument(ctx context.Context, document *s3.Document) (string, error) {
	key := s3.ObjectKey("", document.ID, document.Type)
	p := s.path(key)

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", ierr.WithError(err).
			WithHint("failed to create document directory").
			Mark(ierr.ErrSystem)
	}

	// write then rename so a crashed upload never leaves a truncated receipt
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, document.Data, 0o644); err != nil {
		return "", ierr.WithError(err).
			WithHint("failed to write document").
			Mark(ierr.ErrSystem)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return "", ierr.WithError(err).
			WithHint("failed to write document").
			Mark(ierr.ErrSystem)
	}
	return key, nil
}

func (s *LocalStore) GetPresignedUrl(ctx context.Context, key string) (string, error) {
	abs, err := filepath.Abs(s.path(key))
	if err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func (s *LocalStore) GetDocument(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ierr.WithError(err).
				WithHint("document not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to read document").
			Mark(ierr.ErrSystem)
	}
	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, ierr.WithError(err).Mark(ierr.ErrSystem)
}
