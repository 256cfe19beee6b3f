// Package storage keeps uploaded media files.
package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ErrInvalidName is returned for names escaping the storage root
var ErrInvalidName = errors.New("invalid file name")

// StoredFile describes a saved file
type StoredFile struct {
	Name string
	Size int64
	SHA1 string
}

// Storage saves and serves media files by relative name
type Storage interface {
	Save(dir, filename string, r io.Reader) (StoredFile, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	Path(name string) (string, error)
	URL(name string) string
}

// LocalStorage stores files below Root and serves them under BaseURL
type LocalStorage struct {
	Root    string
	BaseURL string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates the root directory when missing
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{Root: root, BaseURL: baseURL}, nil
}

// ValidFilename lowercases the extension and slugs the stem, so
// "Relevé Mars 2025.PDF" becomes "releve-mars-2025.pdf".
func ValidFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

// Save writes r under dir, picking a free name derived from filename
func (s *LocalStorage) Save(dir, filename string, r io.Reader) (StoredFile, error) {
	name := path.Join(dir, ValidFilename(filename))
	full, err := s.Path(name)
	if err != nil {
		return StoredFile{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		ext := path.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:7] + ext
		if full, err = s.Path(name); err != nil {
			return StoredFile{}, err
		}
		f, err = os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return StoredFile{}, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	hash := sha1.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		_ = os.Remove(full)
		return StoredFile{}, fmt.Errorf("write file: %w", err)
	}

	return StoredFile{Name: name, Size: size, SHA1: hex.EncodeToString(hash.Sum(nil))}, nil
}

// Open opens a stored file for reading
func (s *LocalStorage) Open(name string) (*os.File, error) {
	full, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Delete removes a stored file, ignoring missing ones
func (s *LocalStorage) Delete(name string) error {
	full, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path resolves name to a filesystem path inside Root
func (s *LocalStorage) Path(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" {
		return "", ErrInvalidName
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean[1:])), nil
}

// URL is the public URL of a stored file
func (s *LocalStorage) URL(name string) string {
	return s.BaseURL + strings.TrimPrefix(name, "/")
}
