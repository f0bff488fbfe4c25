// Package content implements sources of course material for the content
// provider: a directory of JSON/YAML documents and a remote HTTP endpoint.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILE SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// extensions are tried in order for every candidate file name.
var extensions = []string{".json", ".yaml", ".yml"}

// FileSource reads day and week documents from a directory.
//
// Layout:
//
//	<dir>/<project>/day7.json     project-specific material
//	<dir>/day7.yaml               shared material
//	<dir>/<project>/week3.yaml
//	<dir>/week3.json
//
// The project directory wins over the shared one.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Dir returns the root directory.
func (s *FileSource) Dir() string {
	return s.dir
}

// FetchDay implements content.Provider.
func (s *FileSource) FetchDay(_ context.Context, day int, project progress.Project) (domain.Day, error) {
	var d domain.Day
	if err := s.load(fmt.Sprintf("day%d", day), project, &d); err != nil {
		return domain.Day{}, err
	}
	return d, nil
}

// FetchWeek implements content.Provider.
func (s *FileSource) FetchWeek(_ context.Context, week int, project progress.Project) (domain.Week, error) {
	var w domain.Week
	if err := s.load(fmt.Sprintf("week%d", week), project, &w); err != nil {
		return domain.Week{}, err
	}
	return w, nil
}

func (s *FileSource) load(name string, project progress.Project, out any) error {
	path, err := s.find(name, project)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return shared.WrapError("content", "FileSource.Read", shared.ErrContentUnavailable, path, err)
	}
	if err := decode(path, data, out); err != nil {
		return shared.WrapError("content", "FileSource.Decode", shared.ErrContentInvalid, path, err)
	}
	return nil
}

func (s *FileSource) find(name string, project progress.Project) (string, error) {
	dirs := []string{s.dir}
	if project.IsSet() {
		dirs = []string{filepath.Join(s.dir, string(project)), s.dir}
	}
	for _, dir := range dirs {
		for _, ext := range extensions {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			} else if !errors.Is(err, fs.ErrNotExist) {
				return "", shared.WrapError("content", "FileSource.Stat", shared.ErrContentUnavailable, path, err)
			}
		}
	}
	return "", shared.WrapError("content", "FileSource.Find", shared.ErrContentUnavailable,
		fmt.Sprintf("%s not found under %s", name, s.dir), nil)
}

func decode(path string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}
