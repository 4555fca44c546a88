package utils

import (
	"os"
	"path/filepath"
)

// ReadSource resolves relPath to an absolute path and returns the file
// contents along with that path.
func ReadSource(relPath string) (src string, fullPath string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fullPath, err
	}

	return string(data), fullPath, nil
}
