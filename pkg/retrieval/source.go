package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Document is one source file queued for indexing.
type Document struct {
	Name string
	Text string
}

// DocumentSource yields the documents the index is built from.
type DocumentSource interface {
	Documents() ([]Document, error)
}

// DirSource reads .md and .txt files from a directory tree.
type DirSource struct {
	root string
}

// NewDirSource creates a source over root, creating the directory when it
// does not exist yet.
func NewDirSource(root string) (*DirSource, error) {
	if root == "" {
		return nil, fmt.Errorf("document directory cannot be empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &DirSource{root: root}, nil
}

// Root returns the watched directory.
func (s *DirSource) Root() string {
	return s.root
}

// Documents walks the tree and returns every .md and .txt file, sorted by
// path so rebuilds are deterministic.
func (s *DirSource) Documents() ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		docs = append(docs, Document{Name: rel, Text: string(data)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
