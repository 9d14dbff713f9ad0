// Package filestore keeps item payloads as flat files in one directory.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PlaceholderName is the payload of File items that have not been uploaded yet.
	PlaceholderName    = "dummy_file.txt"
	placeholderContent = "This file is not uploaded yet, please wait!"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
)

// Store reads and writes payload files under dir.
type Store struct {
	dir string
}

// New prepares dir and makes sure the placeholder exists.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	s := &Store{dir: dir}

	placeholder := filepath.Join(dir, PlaceholderName)
	if _, err := os.Stat(placeholder); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(placeholder, []byte(placeholderContent), 0o644); err != nil {
			return nil, fmt.Errorf("filestore: write placeholder: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("filestore: stat placeholder: %w", err)
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Placeholder() string { return PlaceholderName }

func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// ReadString returns the whole file as text.
func (s *Store) ReadString(name string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrFileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("filestore: read %s: %w", name, err)
	}
	return string(b), nil
}

// Open returns a read handle and the file size. The caller closes the handle.
func (s *Store) Open(name string) (*os.File, int64, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, ErrFileNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("filestore: open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("filestore: stat %s: %w", name, err)
	}
	return f, info.Size(), nil
}

// Write stores r under name. A partially written file is removed on error.
func (s *Store) Write(name string, r io.Reader) (int64, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}
	if name == PlaceholderName {
		return 0, fmt.Errorf("%w: placeholder is read-only", ErrInvalidName)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("filestore: create %s: %w", name, err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(p)
		return 0, fmt.Errorf("filestore: write %s: %w", name, err)
	}
	return n, nil
}

// Remove deletes name. Missing files and the placeholder are ignored.
func (s *Store) Remove(name string) error {
	if name == PlaceholderName {
		return nil
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: remove %s: %w", name, err)
	}
	return nil
}
