// Package secrets resolves credentials from configuration values that may
// reference environment variables or point at mounted secret files
// (Docker or Kubernetes secrets). Secret values are never logged.
package secrets

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/perdiem-go/internal/errors"
)

// maxSecretFileSize bounds secret file reads; API keys and DSNs are small.
const maxSecretFileSize = 64 * 1024

// ExpandString expands ${VAR} and ${VAR:-default} references in s.
// Referencing an unset variable without a default is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
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
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret file, trimming trailing newlines only. Files readable
// by group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fileError("secret file path is empty", path, nil)
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", fileError("secret file not accessible", cleanPath, err)
	}
	if !info.Mode().IsRegular() {
		return "", fileError("secret path is not a regular file", cleanPath, nil)
	}
	if info.Size() > maxSecretFileSize {
		return "", fileError("secret file too large", cleanPath, nil)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		log.Printf("Warning: secret file %s is readable by group or others (mode %04o)", cleanPath, perm)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fileError("failed to read secret file", cleanPath, err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError("secret file is empty", cleanPath, nil)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded. Both empty resolves to "".
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	return ExpandString(value)
}

func fileError(msg, path string, cause error) error {
	err := fmt.Errorf("%s: %s", msg, path)
	if cause != nil {
		err = fmt.Errorf("%s: %w", msg, cause)
	}
	return errors.New(err).
		Category(errors.CategoryConfiguration).
		Component("conf").
		Context("path", path).
		Build()
}
