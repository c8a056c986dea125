// Package records loads intake and feedback submissions from durable storage
// and validates them into typed records for the analytics engine.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Source reads raw stored submissions from one collection.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Read returns every stored document in the collection.
	// A missing collection is not an error and yields no documents.
	Read(ctx context.Context) ([]json.RawMessage, error)
}

// FileSource reads a master JSON file holding an array of records or a single record.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the master file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string {
	return "file:" + filepath.Base(s.path)
}

// Read implements Source.
func (s *FileSource) Read(ctx context.Context) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	docs, err := SplitDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return docs, nil
}

// DirSource reads a directory of per-submission metadata files (*.json).
// Files that fail to parse are skipped and logged.
type DirSource struct {
	dir    string
	logger *logrus.Logger
}

// NewDirSource creates a source over every *.json file in dir.
func NewDirSource(dir string, logger *logrus.Logger) *DirSource {
	return &DirSource{dir: dir, logger: logger}
}

// Name implements Source.
func (s *DirSource) Name() string {
	return "dir:" + filepath.Base(s.dir)
}

// Read implements Source.
func (s *DirSource) Read(ctx context.Context) ([]json.RawMessage, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata directory %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []json.RawMessage
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.WithFields(logrus.Fields{"file": name, "error": err}).Warn("Skipping unreadable metadata file")
			continue
		}
		parsed, err := SplitDocument(data)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"file": name, "error": err}).Warn("Skipping unparseable metadata file")
			continue
		}
		docs = append(docs, parsed...)
	}
	return docs, nil
}
