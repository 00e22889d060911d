package storage

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxAttachmentSize caps a single file read into a request body.
const MaxAttachmentSize = 10 * 1024 * 1024

// ValidatePathWithinWorkDir resolves filePath against workDir and rejects it
// if the result escapes workDir, either through ".." segments or an absolute
// path elsewhere on disk.
func ValidatePathWithinWorkDir(filePath, workDir string) (string, error) {
	targetPath := filePath
	if !filepath.IsAbs(targetPath) {
		targetPath = filepath.Join(workDir, targetPath)
	}

	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve work directory: %w", err)
	}

	// Trailing separator keeps /project-evil from matching /project
	if !strings.HasSuffix(absWorkDir, string(filepath.Separator)) {
		absWorkDir += string(filepath.Separator)
	}

	if absPath != strings.TrimSuffix(absWorkDir, string(filepath.Separator)) &&
		!strings.HasPrefix(absPath, absWorkDir) {
		return "", fmt.Errorf("access denied: %s is outside the project directory", filePath)
	}

	return absPath, nil
}

// LoadAttachments reads the files referenced by src paths in the request
// body into blobs. Paths are relative to workDir and may not leave it.
func LoadAttachments(req *Request, workDir string) error {
	for i := range req.Body.Form {
		entry := &req.Body.Form[i]
		if len(entry.Src) == 0 || len(entry.Files) > 0 {
			continue
		}
		files := make([]*Blob, 0, len(entry.Src))
		for _, src := range entry.Src {
			blob, err := readBlob(src, workDir, entry.ContentType)
			if err != nil {
				return fmt.Errorf("form field %q: %w", entry.Key, err)
			}
			files = append(files, blob)
		}
		entry.Files = files
		entry.IsFile = true
		entry.Value = ""
	}

	if req.Body.BinarySrc != "" && req.Body.Binary == nil {
		blob, err := readBlob(req.Body.BinarySrc, workDir, "")
		if err != nil {
			return fmt.Errorf("binary body: %w", err)
		}
		req.Body.Binary = blob
	}
	return nil
}

func readBlob(src, workDir, contentType string) (*Blob, error) {
	absPath, err := ValidatePathWithinWorkDir(src, workDir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment %s is too large (%d bytes, max %d)", src, info.Size(), MaxAttachmentSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(absPath))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &Blob{Name: filepath.Base(absPath), ContentType: contentType, Data: data}, nil
}
