package sandbox

import (
	"log/slog"

	"github.com/blackcoderx/hopp/pkg/storage"
)

// Reconciler merges a request that came back from a script with the
// original it was derived from. Scripts only ever see a JSON view, so file
// content they could not have changed is taken from the original.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler returns a Reconciler. A nil logger discards diagnostics.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{logger: logger}
}

// ApplyScriptRequestUpdates merges with a discarding logger.
func ApplyScriptRequestUpdates(original, updated *storage.Request) *storage.Request {
	return NewReconciler(nil).Apply(original, updated)
}

// Apply returns the request to build from. A nil updated means no script
// ran and original is returned as is. Otherwise every field comes from
// updated, except that file fields and binary bodies are restored from
// original.
func (rc *Reconciler) Apply(original, updated *storage.Request) *storage.Request {
	if updated == nil {
		return original
	}
	merged := updated.Clone()
	if original == nil {
		return merged
	}

	switch {
	case original.Body.ContentType == storage.ContentTypeMultipart &&
		merged.Body.ContentType == storage.ContentTypeMultipart:
		merged.Body.Form = rc.mergeForm(original.Body.Form, merged.Body.Form)
	case original.Body.ContentType == storage.ContentTypeOctetStream &&
		merged.Body.ContentType == storage.ContentTypeOctetStream &&
		original.Body.Binary != nil:
		merged.Body.Binary = original.Body.Binary
		merged.Body.BinarySrc = original.Body.BinarySrc
	}
	return merged
}

// mergeForm pairs each updated field with an original one, trying the same
// position first and then the first unused original with the same key.
// Duplicate keys are matched positionally, and each original is used once.
func (rc *Reconciler) mergeForm(original, updated []storage.FormEntry) []storage.FormEntry {
	used := make(map[int]bool, len(original))

	match := func(i int, key string) int {
		if i < len(original) && !used[i] && original[i].Key == key {
			return i
		}
		for j := range original {
			if !used[j] && original[j].Key == key {
				return j
			}
		}
		return -1
	}

	out := make([]storage.FormEntry, len(updated))
	for i, field := range updated {
		j := match(i, field.Key)
		if j < 0 {
			rc.logger.Debug("multipart field has no original counterpart", "index", i, "key", field.Key)
			out[i] = field
			continue
		}
		used[j] = true

		orig := original[j]
		if orig.IsFile {
			field.IsFile = true
			field.Value = ""
			field.Files = orig.Files
			field.Src = orig.Src
			if orig.ContentType != "" {
				field.ContentType = orig.ContentType
			}
		}
		out[i] = field
	}
	return out
}
