package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// FileSource reads groups from a multi-document catalog YAML file
type FileSource struct {
	path string
}

// NewFileSource creates a catalog source backed by a YAML file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Groups parses every Group document in the file
func (s *FileSource) Groups(_ context.Context) ([]domain.Group, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return decodeGroups(f)
}

func decodeGroups(r io.Reader) ([]domain.Group, error) {
	dec := yaml.NewDecoder(r)

	var groups []domain.Group
	for {
		var e entity
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse catalog file: %w", err)
		}
		if e.isGroup() {
			groups = append(groups, e.toGroup())
		}
	}
	return groups, nil
}
