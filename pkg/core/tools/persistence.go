package tools

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/blackcoderx/hopp/pkg/sandbox"
	"github.com/blackcoderx/hopp/pkg/storage"
)

// GlobalsFile is the dotenv file holding global variables.
const GlobalsFile = "globals.env"

// Workspace gives access to the requests, environments and collections
// saved under a .hopp directory.
type Workspace struct {
	baseDir string
	workDir string
}

// NewWorkspace opens the .hopp directory at baseDir. Attachment paths are
// resolved against its parent directory.
func NewWorkspace(baseDir string) *Workspace {
	return &Workspace{
		baseDir: baseDir,
		workDir: filepath.Dir(baseDir),
	}
}

// BaseDir returns the .hopp directory path.
func (w *Workspace) BaseDir() string {
	return w.baseDir
}

// GlobalsPath returns the path of the globals file.
func (w *Workspace) GlobalsPath() string {
	return filepath.Join(w.baseDir, GlobalsFile)
}

// LoadRequest loads a saved request by name and reads its file attachments.
func (w *Workspace) LoadRequest(name string) (*storage.Request, error) {
	req, err := storage.LoadRequestByName(w.baseDir, name)
	if err != nil {
		return nil, err
	}
	if err := storage.LoadAttachments(req, w.workDir); err != nil {
		return nil, fmt.Errorf("request %q: %w", req.Name, err)
	}
	return req, nil
}

// LoadEnvs builds the script variable state from the globals file and the
// named environment. An empty envName selects no environment.
func (w *Workspace) LoadEnvs(envName string) (sandbox.Envs, error) {
	globals, err := storage.LoadGlobals(w.GlobalsPath())
	if err != nil {
		return sandbox.Envs{}, err
	}
	envs := sandbox.Envs{Global: globals, Selected: []storage.EnvVariable{}}
	if envName == "" {
		return envs, nil
	}

	env, err := storage.LoadEnvironmentByName(w.baseDir, envName)
	if err != nil {
		return sandbox.Envs{}, err
	}
	if env.Variables != nil {
		envs.Selected = env.Variables
	}
	return envs, nil
}

// SaveEnvs writes variable changes made by scripts back to disk: globals to
// the globals file and the selected variables to environments/<envName>.yaml.
func (w *Workspace) SaveEnvs(envName string, envs sandbox.Envs) error {
	if err := storage.SaveGlobals(envs.Global, w.GlobalsPath()); err != nil {
		return err
	}
	if envName == "" {
		return nil
	}
	env := &storage.Environment{Name: envName, Variables: envs.Selected}
	path := filepath.Join(storage.GetEnvironmentsDir(w.baseDir), envName+".yaml")
	return storage.SaveEnvironment(env, path)
}

// LoadCollection loads a collection by name.
func (w *Workspace) LoadCollection(name string) (*storage.Collection, error) {
	return storage.LoadCollection(w.baseDir, name)
}

// ListRequests returns the names of all saved requests.
func (w *Workspace) ListRequests() ([]string, error) {
	return storage.ListRequests(w.baseDir)
}

// ListEnvironments returns the names of all environments.
func (w *Workspace) ListEnvironments() ([]string, error) {
	return storage.ListEnvironments(w.baseDir)
}

// IsNotFound reports whether err means a request, environment or collection
// does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
