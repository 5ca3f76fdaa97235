package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml, in
// order: working directory, user config directory, system directory.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user home directory: %w", err)
	}

	configPaths := []string{"."}
	switch runtime.GOOS {
	case "windows":
		configPaths = append(configPaths, filepath.Join(homeDir, "AppData", "Roaming", configDirName))
	default:
		configPaths = append(configPaths,
			filepath.Join(homeDir, ".config", configDirName),
			"/etc/"+configDirName,
		)
	}
	return configPaths, nil
}

// ResolvePath joins a source path onto the sources directory unless it is
// already absolute.
func (s *SourcesSettings) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || s.Dir == "" {
		return path
	}
	return filepath.Join(s.Dir, path)
}

// NormalizeEncoding maps encoding aliases onto the canonical names used by
// the loader. Unknown names are returned lowercased and trimmed.
func NormalizeEncoding(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	switch n {
	case "", "utf8", "utf-8":
		return EncodingUTF8
	case "utf8-sig", "utf-8-sig":
		return EncodingUTF8SIG
	case "cp1252", "windows-1252", "win1252":
		return EncodingCP1252
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return EncodingLatin1
	default:
		return n
	}
}
