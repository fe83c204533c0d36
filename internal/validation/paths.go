package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator normalizes and checks filesystem paths taken from
// configuration before the pipeline writes state there.
type PathValidator struct {
	// AllowHomeExpansion permits a leading ~/ segment
	AllowHomeExpansion bool
	// MaxPathLength is the maximum allowed path length
	MaxPathLength int
}

// NewPathValidator creates a validator with defaults suitable for state paths.
func NewPathValidator() *PathValidator {
	return &PathValidator{
		AllowHomeExpansion: true,
		MaxPathLength:      4096,
	}
}

// ValidateFile validates a path intended for a regular file. The file does
// not have to exist yet, but an existing directory at the path is an error.
func (v *PathValidator) ValidateFile(path string) (string, error) {
	normalized, err := v.normalize(path)
	if err != nil {
		return "", err
	}

	if info, statErr := os.Stat(normalized); statErr == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", normalized)
	}

	return normalized, nil
}

// ValidateDirectory validates a directory path, optionally creating it.
func (v *PathValidator) ValidateDirectory(path string, createIfNotExist bool) (string, error) {
	normalized, err := v.normalize(path)
	if err != nil {
		return "", err
	}

	info, statErr := os.Stat(normalized)
	switch {
	case statErr == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("path exists but is not a directory: %s", normalized)
		}
	case os.IsNotExist(statErr):
		if createIfNotExist {
			if mkErr := os.MkdirAll(normalized, 0o755); mkErr != nil {
				return "", fmt.Errorf("creating directory: %w", mkErr)
			}
		}
	default:
		return "", fmt.Errorf("checking directory: %w", statErr)
	}

	return normalized, nil
}

// normalize expands, absolutizes and cleans a path, rejecting unsafe input.
func (v *PathValidator) normalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	if strings.Contains(path, "\x00") {
		return "", fmt.Errorf("path contains null bytes")
	}
	for _, char := range path {
		if char < 32 && char != '\t' {
			return "", fmt.Errorf("path contains control characters")
		}
	}

	if strings.HasPrefix(path, "~") {
		if !v.AllowHomeExpansion || !strings.HasPrefix(path, "~/") {
			return "", fmt.Errorf("tilde expansion not allowed or invalid tilde usage")
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		if component == ".." {
			return "", fmt.Errorf("directory traversal not allowed")
		}
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot make path absolute: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}
