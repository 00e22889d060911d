package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envRefPattern matches {{env:VAR_NAME}} references to the process environment
var envRefPattern = regexp.MustCompile(`\{\{\s*env:([^}\s]+)\s*\}\}`)

// LoadEnvironment loads an environment from a YAML file.
//
// Two layouts are accepted: a document with name and a variables list, or a
// flat key: value mapping. {{env:VAR}} references in values are replaced by
// the process environment.
func LoadEnvironment(filePath string) (*Environment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", filePath, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}

	var env Environment
	if err := yaml.Unmarshal(data, &env); err != nil || env.Variables == nil {
		flat := make(map[string]string)
		if ferr := yaml.Unmarshal(data, &flat); ferr != nil {
			if err == nil {
				err = ferr
			}
			return nil, fmt.Errorf("failed to parse environment YAML: %w", err)
		}
		env = Environment{Variables: variablesFromMap(flat)}
	}

	if env.Name == "" {
		env.Name = trimYAML(filepath.Base(filePath))
	}
	for i := range env.Variables {
		env.Variables[i].CurrentValue = resolveEnvRefs(env.Variables[i].CurrentValue)
		env.Variables[i].InitialValue = resolveEnvRefs(env.Variables[i].InitialValue)
	}
	return &env, nil
}

// LoadEnvironmentByName loads environments/<name>.yaml under baseDir.
func LoadEnvironmentByName(baseDir, name string) (*Environment, error) {
	path, err := findYAML(GetEnvironmentsDir(baseDir), name)
	if err != nil {
		return nil, fmt.Errorf("environment %q: %w", name, err)
	}
	return LoadEnvironment(path)
}

// SaveEnvironment saves an environment to a YAML file
func SaveEnvironment(env *Environment, filePath string) error {
	return writeYAML(env, filePath)
}

// ListEnvironments lists all environment files
func ListEnvironments(baseDir string) ([]string, error) {
	envDir := GetEnvironmentsDir(baseDir)

	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(envDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read environments directory: %w", err)
	}

	var envs []string
	for _, entry := range entries {
		if !entry.IsDir() && isYAML(entry.Name()) {
			envs = append(envs, trimYAML(entry.Name()))
		}
	}
	return envs, nil
}

// LoadGlobals reads global variables from a dotenv file. A missing file
// yields no globals.
func LoadGlobals(filePath string) ([]EnvVariable, error) {
	values, err := godotenv.Read(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []EnvVariable{}, nil
		}
		return nil, fmt.Errorf("failed to read globals: %w", err)
	}
	return variablesFromMap(values), nil
}

// SaveGlobals writes the current values of globals to a dotenv file.
func SaveGlobals(vars []EnvVariable, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	values := make(map[string]string, len(vars))
	for _, v := range vars {
		values[v.Key] = v.CurrentValue
	}
	if err := godotenv.Write(values, filePath); err != nil {
		return fmt.Errorf("failed to write globals: %w", err)
	}
	return nil
}

// variablesFromMap builds variables sorted by key so map iteration order
// never leaks into resolution order.
func variablesFromMap(values map[string]string) []EnvVariable {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]EnvVariable, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, EnvVariable{Key: k, InitialValue: values[k], CurrentValue: values[k]})
	}
	return vars
}

// resolveEnvRefs resolves {{env:VAR}} references in a string
func resolveEnvRefs(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return envRefPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := envRefPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}
