package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// FileStore keeps the usage document as one JSON object on disk.
type FileStore struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "usage-store").Logger(),
	}
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the counter stored for date. It never fails: an absent,
// unreadable or malformed document reads as empty.
func (s *FileStore) Load(date string) Counter {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readSoft()
	if c, ok := doc[date]; ok {
		return c
	}
	return make(Counter)
}

// LoadDocument returns every stored day.
func (s *FileStore) LoadDocument() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readSoft(), nil
}

// Save replaces the entry for date with c, keeping all other days, and
// writes the whole document through a temp file and rename.
func (s *FileStore) Save(date string, c Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readSoft()
	doc[date] = c.sanitize()
	return s.write(doc)
}

// Prune removes every day strictly before the given date key.
func (s *FileStore) Prune(before string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readSoft()
	removed := 0
	for date := range doc {
		if date < before {
			delete(doc, date)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(doc); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *FileStore) readSoft() Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Usage document unreadable, treating as empty")
		}
		return make(Document)
	}

	var raw map[string]map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Usage document malformed, treating as empty")
		return make(Document)
	}

	doc := make(Document, len(raw))
	for date, c := range raw {
		doc[date] = Counter(c).sanitize()
	}
	return doc
}

func (s *FileStore) write(doc Document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create usage directory")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode usage document")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to write usage document")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to sync usage document")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to close usage document")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to replace %s", s.path)
	}
	return nil
}
