// Package assets provides embedded example task definitions.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed tasks/*.yaml
var tasksFS embed.FS

// LoadTask returns the YAML content of an example task by name.
// Override lookup order: project .maker/tasks/ > user ~/.maker/tasks/ > embedded.
func LoadTask(name string) ([]byte, error) {
	content, err := loadWithOverride("tasks", name+".yaml", tasksFS)
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// ListTasks returns all embedded example tasks as a map (name → YAML content).
func ListTasks() (map[string]string, error) {
	return readAll(tasksFS, "tasks", ".yaml")
}

func loadWithOverride(dir, filename string, embedded embed.FS) (string, error) {
	// 1. project-level override
	projectPath := filepath.Join(".maker", dir, filename)
	if data, err := os.ReadFile(projectPath); err == nil {
		return string(data), nil
	}

	// 2. user-level override
	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".maker", dir, filename)
		if data, err := os.ReadFile(userPath); err == nil {
			return string(data), nil
		}
	}

	// 3. embedded default
	embeddedPath := filepath.Join(dir, filename)
	data, err := embedded.ReadFile(embeddedPath)
	if err != nil {
		return "", fmt.Errorf("%s %q not found", dir, filename)
	}
	return string(data), nil
}

func readAll(fsys embed.FS, dir, ext string) (map[string]string, error) {
	result := map[string]string{}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ext {
			continue
		}
		data, err := fsys.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		key := name[:len(name)-len(ext)]
		result[key] = string(data)
	}
	return result, nil
}
