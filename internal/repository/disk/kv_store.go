// Package disk stores key-value data as files under a base directory.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"outliner/internal/domain/repositories"
)

const keySeparator = "/"

// KVStore implements repositories.KeyValueStore with diskv.
// Each key segment becomes a directory and the last segment the file name.
type KVStore struct {
	d      *diskv.Diskv
	logger *slog.Logger
}

// NewKVStore creates a store rooted at basePath.
func NewKVStore(basePath string, logger *slog.Logger) repositories.KeyValueStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVStore{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      1024 * 1024, // 1MB
			FilePerm:          0o600,
			PathPerm:          0o700,
		}),
		logger: logger,
	}
}

// Get returns the value for key, or nil if it does not exist.
func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return val, nil
}

// Set writes value for key.
func (s *KVStore) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.d.Write(key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.logger.Debug("kv write", "key", key, "bytes", len(value))
	return nil
}

// Delete removes key; a missing key is ignored.
func (s *KVStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("erase %s: %w", key, err)
	}
	return nil
}

// List returns the keys starting with prefix, sorted.
func (s *KVStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	for key := range s.d.KeysPrefix(prefix, ctx.Done()) {
		keys = append(keys, key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// validateKey rejects keys whose segments would escape or collide in the directory tree.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	for _, part := range strings.Split(key, keySeparator) {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid key %q", key)
		}
	}
	return nil
}

func keyToPathTransform(key string) *diskv.PathKey {
	parts := strings.Split(key, keySeparator)
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return &diskv.PathKey{
		Path:     escaped[:len(escaped)-1],
		FileName: escaped[len(escaped)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	parts := append(slices.Clone(pathKey.Path), pathKey.FileName)
	for i, p := range parts {
		if unescaped, err := url.PathUnescape(p); err == nil {
			parts[i] = unescaped
		}
	}
	return strings.Join(parts, keySeparator)
}
