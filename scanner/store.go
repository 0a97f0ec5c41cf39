// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Combines multiple closers to ensure all resources are released.
type multiReadCloser struct {
	io.ReadCloser
	underlying io.Closer
}

// Implements io.Closer and ensures all resources are properly released.
func (r *multiReadCloser) Close() error {
	return errors.Join(
		r.ReadCloser.Close(),
		r.underlying.Close(),
	)
}

// FileStore keeps the raw HTML of every fetched article, gzip-compressed,
// so extraction rules can be replayed without re-fetching.
type FileStore struct {
	root string
}

// NewFileStore creates a file store rooted at the given directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: filepath.Join(root, "articles")}
}

// slug turns a permalink into a flat filename: the path segments joined
// with dashes, e.g. /2025/08/01/robbery -> 2025-08-01-robbery.html.gz.
func slug(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing article URL: %w", err)
	}

	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return "", fmt.Errorf("article URL %q has no path", rawURL)
	}

	return strings.Join(parts, "-") + ".html.gz", nil
}

func (s *FileStore) pathFor(rawURL string) (string, error) {
	name, err := slug(rawURL)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.root, name), nil
}

// Save writes the raw HTML for an article.
func (s *FileStore) Save(rawURL string, body []byte) error {
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return fmt.Errorf("setting up file store: %w", err)
	}

	path, err := s.pathFor(rawURL)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 - path derives from our own root
	if err != nil {
		return fmt.Errorf("creating article file: %w", err)
	}

	zw := gzip.NewWriter(f)

	if _, err := zw.Write(body); err != nil {
		_ = zw.Close()
		_ = f.Close()

		return fmt.Errorf("writing article file: %w", err)
	}

	return errors.Join(zw.Close(), f.Close())
}

// Open returns a reader over the stored raw HTML for an article.
func (s *FileStore) Open(rawURL string) (io.ReadCloser, error) {
	path, err := s.pathFor(rawURL)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 - path derives from our own root
	if err != nil {
		return nil, fmt.Errorf("opening article file: %w", err)
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("decompressing article file: %w", err)
	}

	return &multiReadCloser{ReadCloser: zr, underlying: f}, nil
}

// Exists reports whether raw HTML is stored for the given article.
func (s *FileStore) Exists(rawURL string) bool {
	path, err := s.pathFor(rawURL)
	if err != nil {
		return false
	}

	_, err = os.Stat(path)

	return err == nil
}
