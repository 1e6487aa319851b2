// Package secrets resolves the destination password from a mounted secret
// file (Docker or Kubernetes secrets) or from an environment reference.
// Secret values are never logged or included in errors.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// maxSecretFileSize limits secret file reads; passwords are small.
	maxSecretFileSize = 64 * 1024

	// permissiveBits are the group/other bits that should be clear on a secret file.
	permissiveBits = 0o077
)

// ExpandString resolves ${VAR} and ${VAR:-default} references in s. A value
// without "${" is returned unchanged so that passwords containing a plain
// '$' survive.
func ExpandString(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// File describes a secret file that was read.
type File struct {
	Path string
	// Permissive is set when group or other have any access to the file.
	Permissive bool
}

// ReadFile reads a secret from path on fs. Trailing newlines are trimmed;
// other whitespace is part of the secret.
func ReadFile(fs afero.Fs, path string) (string, File, error) {
	if path == "" {
		return "", File{}, fmt.Errorf("secret file path is empty")
	}
	clean := filepath.Clean(path)
	meta := File{Path: clean}

	info, err := fs.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return "", meta, fmt.Errorf("secret file not found: %s", clean)
		}
		return "", meta, fmt.Errorf("failed to stat secret file %s: %w", clean, err)
	}
	if !info.Mode().IsRegular() {
		return "", meta, fmt.Errorf("secret path is not a regular file: %s", clean)
	}
	if info.Size() > maxSecretFileSize {
		return "", meta, fmt.Errorf("secret file too large (max %d bytes): %s", maxSecretFileSize, clean)
	}
	meta.Permissive = info.Mode().Perm()&permissiveBits != 0

	data, err := afero.ReadFile(fs, clean)
	if err != nil {
		return "", meta, fmt.Errorf("failed to read secret file %s: %w", clean, err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", meta, fmt.Errorf("secret file is empty: %s", clean)
	}
	return secret, meta, nil
}

// Resolve returns the secret from filePath when it is set, otherwise value
// with environment references expanded.
func Resolve(fs afero.Fs, filePath, value string) (string, File, error) {
	if filePath != "" {
		secret, meta, err := ReadFile(fs, filePath)
		if err != nil {
			return "", meta, fmt.Errorf("failed to read secret from file: %w", err)
		}
		return secret, meta, nil
	}

	expanded, err := ExpandString(value)
	return expanded, File{}, err
}
