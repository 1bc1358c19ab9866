// Package source resolves task definitions from files or embedded examples.
package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bigdegenenergy/maker-framework/internal/assets"
	"github.com/bigdegenenergy/maker-framework/internal/task"
)

// Input is the normalized task input passed to the runner.
type Input struct {
	Task   *task.Task
	Ref    string // file path or example name
	Origin string // "file" | "example"
}

// Source fetches a task definition and normalizes it.
type Source interface {
	Fetch(ctx context.Context) (*Input, error)
}

// FileSource reads a task definition from a local YAML file.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context) (*Input, error) {
	t, err := task.ParseFile(s.Path)
	if err != nil {
		return nil, err
	}
	return &Input{Task: t, Ref: s.Path, Origin: "file"}, nil
}

// ExampleSource loads one of the embedded example tasks by name.
type ExampleSource struct {
	Name string
}

func (s *ExampleSource) Fetch(ctx context.Context) (*Input, error) {
	data, err := assets.LoadTask(s.Name)
	if err != nil {
		return nil, err
	}
	t, err := task.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("example task %q: %w", s.Name, err)
	}
	return &Input{Task: t, Ref: s.Name, Origin: "example"}, nil
}

// Resolve picks the source for a ref: an existing file or a path-looking ref
// is a file, anything else is an embedded example name.
func Resolve(ref string) Source {
	if _, err := os.Stat(ref); err == nil {
		return &FileSource{Path: ref}
	}
	if strings.ContainsAny(ref, "/\\") || strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return &FileSource{Path: ref}
	}
	return &ExampleSource{Name: ref}
}
