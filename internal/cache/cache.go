// Package cache is the content-addressed store for schema artifacts. An
// entry bundles a schema snapshot with optional precomputed per-table
// embeddings; its key derives from the schema source bytes and the cache
// format version, so cache reuse survives file renames and relocation, and
// two processes building from identical content converge on one entry.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/schema"
)

// Entry is one cached artifact bundle. An Entry is valid for exactly one
// snapshot content hash and one format version; any mismatch forces a cold
// rebuild, never a partial patch.
type Entry struct {
	Key             string               `json:"key"`
	FormatVersion   string               `json:"format_version"`
	CachedAt        time.Time            `json:"cached_at"`
	Snapshot        *schema.Snapshot     `json:"snapshot"`
	TableEmbeddings map[string][]float32 `json:"table_embeddings,omitempty"`
}

// EntryInfo describes one on-disk entry for status listings.
type EntryInfo struct {
	Key     string
	Path    string
	Size    int64
	ModTime time.Time
}

// Store reads and writes entries under a single directory, one JSON file
// per entry named by its derived key.
type Store struct {
	directory string
	version   string
	logger    *zap.Logger
}

// DeriveKey computes the cache key for schema source bytes under a format
// version. Identical source and version always derive the identical key;
// any single-byte change in source changes the digest.
func DeriveKey(source []byte, formatVersion string) string {
	return "schema_v" + formatVersion + "_" + schema.HashSource(source)
}

// NewStore creates a store rooted at directory, treating formatVersion as
// the current version for load-time invalidation.
func NewStore(directory, formatVersion string, logger *zap.Logger) (*Store, error) {
	// Expand path if it starts with ~
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeCacheCorruption, "failed to get user home directory")
		}

		directory = filepath.Join(home, directory[2:])
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeCacheCorruption, "failed to create cache directory %s", directory)
	}

	return &Store{
		directory: directory,
		version:   formatVersion,
		logger:    logger,
	}, nil
}

// Path returns the storage location for a key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.directory, key+".json")
}

// Lookup reports whether an entry exists for the key and where.
func (s *Store) Lookup(key string) (string, bool) {
	path := s.Path(key)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}

	return path, true
}

// Load deserializes the entry at path. A stored format version differing
// from the current one, or any decode failure, deletes the file and
// returns a cache_corruption error; callers recover with a cold rebuild,
// so corruption never propagates into the running system.
func (s *Store) Load(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.discard(path)
		return nil, errors.Wrapf(err, errors.ErrTypeCacheCorruption, "unreadable cache entry %s", path)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.discard(path)
		return nil, errors.Wrapf(err, errors.ErrTypeCacheCorruption, "undecodable cache entry %s", path)
	}

	if entry.FormatVersion != s.version {
		s.discard(path)
		return nil, errors.Newf(
			errors.ErrTypeCacheCorruption,
			"cache entry has format version %s, current is %s", entry.FormatVersion, s.version,
		)
	}

	if entry.Snapshot == nil || len(entry.Snapshot.Tables) == 0 {
		s.discard(path)
		return nil, errors.New(errors.ErrTypeCacheCorruption, "cache entry has no schema snapshot")
	}

	return &entry, nil
}

// Save serializes the entry to path. On any write failure the partially
// written file is removed so a truncated entry can never be reused; the
// returned error is advisory and callers continue without cache.
func (s *Store) Save(entry *Entry, path string) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCacheCorruption, "failed to serialize cache entry")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		s.discard(path)
		return errors.Wrapf(err, errors.ErrTypeCacheCorruption, "failed to write cache entry %s", path)
	}

	return nil
}

// Entries lists the on-disk entries in name order.
func (s *Store) Entries() ([]EntryInfo, error) {
	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeCacheCorruption, "failed to read cache directory %s", s.directory)
	}

	var infos []EntryInfo

	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}

		fi, err := de.Info()
		if err != nil {
			continue
		}

		infos = append(infos, EntryInfo{
			Key:     strings.TrimSuffix(de.Name(), ".json"),
			Path:    filepath.Join(s.directory, de.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	return infos, nil
}

// Clear removes every entry, returning the number deleted.
func (s *Store) Clear() (int, error) {
	infos, err := s.Entries()
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, info := range infos {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, errors.ErrTypeCacheCorruption, "failed to remove %s", info.Path)
		}

		removed++
	}

	return removed, nil
}

// Directory returns the resolved cache directory.
func (s *Store) Directory() string {
	return s.directory
}

func (s *Store) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove invalid cache entry",
			zap.String("path", path), zap.Error(err))
	}
}
