package core

import (
	"fmt"

	"github.com/aymanbagabas/go-udiff"
	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/hopp/pkg/storage"
)

// RequestDiff renders a unified diff between two requests in their YAML
// form. It returns "" when they are the same. File contents are not part
// of the comparison, only their source paths.
func RequestDiff(before, after *storage.Request) (string, error) {
	a, err := yaml.Marshal(before)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	b, err := yaml.Marshal(after)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	if string(a) == string(b) {
		return "", nil
	}

	name := before.Name
	if name == "" {
		name = "request"
	}
	edits := udiff.Strings(string(a), string(b))
	unified, err := udiff.ToUnified("a/"+name, "b/"+name, string(a), edits, 3)
	if err != nil {
		return "", fmt.Errorf("failed to generate diff: %w", err)
	}
	return unified, nil
}
