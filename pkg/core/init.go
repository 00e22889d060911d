package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const HoppFolderName = ".hopp"

// Config is the user's hopp configuration.
type Config struct {
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// ScriptTimeout bounds each pre-request or test script run
	ScriptTimeout time.Duration
	DefaultEnv    string
	ResultsDir    string
	LogLevel      string
	// UpdateRepo is the GitHub owner/name that `hopp update` checks for releases
	UpdateRepo string
}

// fileConfig is the on-disk form of Config.
type fileConfig struct {
	Timeout       string `json:"timeout"`
	ScriptTimeout string `json:"script_timeout"`
	DefaultEnv    string `json:"default_env"`
	ResultsDir    string `json:"results_dir"`
	LogLevel      string `json:"log_level"`
}

// SetConfigDefaults registers the default for every config key.
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("timeout", "30s")
	v.SetDefault("script_timeout", "5s")
	v.SetDefault("default_env", "dev")
	v.SetDefault("results_dir", filepath.Join(HoppFolderName, "test-results"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("update_repo", "blackcoderx/hopp")
}

// LoadConfig reads the config keys from v. Unset keys take their defaults.
func LoadConfig(v *viper.Viper) Config {
	SetConfigDefaults(v)
	return Config{
		Timeout:       v.GetDuration("timeout"),
		ScriptTimeout: v.GetDuration("script_timeout"),
		DefaultEnv:    v.GetString("default_env"),
		ResultsDir:    v.GetString("results_dir"),
		LogLevel:      v.GetString("log_level"),
		UpdateRepo:    v.GetString("update_repo"),
	}
}

// InitializeHoppFolder creates the .hopp directory under baseDir with a
// default config, a dev environment, an example request and empty globals.
// Existing files are left alone, so running it again only fills in what is
// missing. Progress is written to out.
func InitializeHoppFolder(baseDir string, out io.Writer) error {
	root := filepath.Join(baseDir, HoppFolderName)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		fmt.Fprintf(out, "Initializing %s folder...\n", HoppFolderName)
		if err := os.Mkdir(root, 0755); err != nil {
			return fmt.Errorf("failed to create %s folder: %w", HoppFolderName, err)
		}
		defer fmt.Fprintf(out, "✓ %s folder initialized\n", HoppFolderName)
	}

	for _, dir := range []string{"requests", "environments", "collections"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s folder: %w", dir, err)
		}
	}

	config, err := json.MarshalIndent(fileConfig{
		Timeout:       "30s",
		ScriptTimeout: "5s",
		DefaultEnv:    "dev",
		ResultsDir:    filepath.Join(HoppFolderName, "test-results"),
		LogLevel:      "warn",
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	files := []struct {
		path    string
		content []byte
	}{
		{filepath.Join(root, "config.json"), config},
		{filepath.Join(root, "environments", "dev.yaml"), []byte(defaultEnvironment)},
		{filepath.Join(root, "requests", "example.yaml"), []byte(exampleRequest)},
		{filepath.Join(root, "globals.env"), []byte(defaultGlobals)},
	}
	for _, f := range files {
		if err := createIfMissing(f.path, f.content); err != nil {
			return err
		}
	}
	return nil
}

func createIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

const defaultEnvironment = `# Development environment
name: dev
variables:
  - key: baseUrl
    value: https://httpbin.org
`

const defaultGlobals = `# Variables shared by every environment, KEY=value
`

const exampleRequest = `name: example
method: GET
url: <<baseUrl>>/get
params:
  - key: source
    value: hopp
pre_request_script: |
  hopp.env.set("requestedAt", String(Date.now()));
test_script: |
  hopp.test("responds with 200", () => {
    hopp.expect(hopp.response.statusCode).to.equal(200);
  });
`
