package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a catalog from path: a directory of .cue files, a .cue file,
// or a .yaml/.yml file.
func Load(path string) (*Result, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog: %v", err)}}
	}
	if info.IsDir() {
		return LoadCUEDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, File: path, Message: err.Error()}}
		}
		return CompileCUE(data, path)
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, File: path, Message: err.Error()}}
		}
		defer f.Close()
		return LoadYAML(f, path)
	default:
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, File: path, Message: "unsupported catalog format; want .cue, .yaml or .yml"}}
	}
}

// IsCatalogFile reports whether path has a catalog extension.
func IsCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue", ".yaml", ".yml":
		return true
	}
	return false
}
