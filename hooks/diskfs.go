package hooks

import (
	"fmt"
	"os"
	"strings"
)

// diskFileSystem is the reference FileSystem, reading and writing PRG files
// relative to the process's working directory.
type diskFileSystem struct{}

// NewDiskFileSystem returns the default, OS-backed FileSystem.
func NewDiskFileSystem() FileSystem {
	return diskFileSystem{}
}

// resolvePRGName tries name verbatim, then name+".prg", per the CLI
// contract that a startup filename may be given without its extension.
func resolvePRGName(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if !strings.HasSuffix(strings.ToLower(name), ".prg") {
		if _, err := os.Stat(name + ".prg"); err == nil {
			return name + ".prg", nil
		}
	}
	return "", fmt.Errorf("can't find %q", name)
}

func (diskFileSystem) ReadPRG(name string) ([]byte, error) {
	path, err := resolvePRGName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("%q is too short to be a PRG file", path)
	}
	return data, nil
}

func (diskFileSystem) WritePRG(name string, data []byte) error {
	path := name
	if !strings.HasSuffix(strings.ToLower(path), ".prg") {
		path += ".prg"
	}
	return os.WriteFile(path, data, 0644)
}

var _ FileSystem = diskFileSystem{}
