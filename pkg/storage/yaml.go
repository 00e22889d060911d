package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a named request, environment, or collection
// does not exist on disk.
var ErrNotFound = errors.New("not found")

// SaveRequest saves a request to a YAML file
func SaveRequest(req *Request, filePath string) error {
	return writeYAML(req, filePath)
}

// LoadRequest loads a request from a YAML file
func LoadRequest(filePath string) (*Request, error) {
	var req Request
	if err := readYAML(filePath, &req); err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = "GET"
	}
	return &req, nil
}

// LoadRequestByName loads requests/<name>.yaml (or .yml) under baseDir.
func LoadRequestByName(baseDir, name string) (*Request, error) {
	path, err := findYAML(GetRequestsDir(baseDir), name)
	if err != nil {
		return nil, fmt.Errorf("request %q: %w", name, err)
	}
	return LoadRequest(path)
}

// ListRequests lists all saved requests in the requests directory
func ListRequests(baseDir string) ([]string, error) {
	requestsDir := GetRequestsDir(baseDir)

	if _, err := os.Stat(requestsDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	var files []string
	err := filepath.Walk(requestsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isYAML(path) {
			relPath, _ := filepath.Rel(requestsDir, path)
			files = append(files, trimYAML(relPath))
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	return files, nil
}

// SaveCollection saves a collection to collections/<name>.yaml under baseDir.
func SaveCollection(baseDir string, col *Collection) error {
	return writeYAML(col, filepath.Join(GetCollectionsDir(baseDir), col.Name))
}

// LoadCollection loads a collection by name.
func LoadCollection(baseDir, name string) (*Collection, error) {
	path, err := findYAML(GetCollectionsDir(baseDir), name)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}
	var col Collection
	if err := readYAML(path, &col); err != nil {
		return nil, err
	}
	if col.Name == "" {
		col.Name = name
	}
	return &col, nil
}

// GetRequestsDir returns the requests directory path
func GetRequestsDir(baseDir string) string {
	return filepath.Join(baseDir, "requests")
}

// GetEnvironmentsDir returns the environments directory path
func GetEnvironmentsDir(baseDir string) string {
	return filepath.Join(baseDir, "environments")
}

// GetCollectionsDir returns the collections directory path
func GetCollectionsDir(baseDir string) string {
	return filepath.Join(baseDir, "collections")
}

func writeYAML(v any, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if !isYAML(filePath) {
		filePath = filePath + ".yaml"
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filePath), err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func readYAML(filePath string, v any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", filePath, ErrNotFound)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", filePath, err)
	}
	return nil
}

// findYAML resolves name to an existing .yaml or .yml file inside dir.
func findYAML(dir, name string) (string, error) {
	if isYAML(name) {
		name = trimYAML(name)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

func trimYAML(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
}
