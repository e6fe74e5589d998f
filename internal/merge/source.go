package merge

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Source is one input file. Read blocks until the whole content is
// available; the Processor never calls Read on two sources at once.
type Source interface {
	Name() string
	Read() (string, error)
}

type fileSource struct {
	path string
}

// FileSource reads path from disk. Its name is the base name of path.
func FileSource(path string) Source {
	return fileSource{path: path}
}

func (s fileSource) Name() string {
	return filepath.Base(s.path)
}

func (s fileSource) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type memorySource struct {
	name    string
	content string
}

// MemorySource serves content that is already in memory.
func MemorySource(name, content string) Source {
	return memorySource{name: name, content: content}
}

func (s memorySource) Name() string {
	return s.name
}

func (s memorySource) Read() (string, error) {
	return s.content, nil
}

// Exclude describes generated files that Discover must not offer as inputs.
type Exclude struct {
	// OutputDir is skipped when the walk reaches it. When it is the walked
	// root itself, only generated names inside it are skipped.
	OutputDir string

	// MergedName is the file name of the merged output.
	MergedName string
}

// Discover returns a source for every .gpx file below root, in lexical path
// order, leaving out what ex names. If root is a file it is returned on its
// own.
func Discover(root string, ex Exclude) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", root, err)
	}
	if !info.IsDir() {
		return []Source{FileSource(root)}, nil
	}

	outDir := ""
	if ex.OutputDir != "" {
		if outDir, err = filepath.Abs(ex.OutputDir); err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", ex.OutputDir, err)
		}
	}

	var sources []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && outDir != "" && sameDir(path, outDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".gpx") {
			return nil
		}
		if outDir != "" && sameDir(filepath.Dir(path), outDir) && ex.generated(d.Name()) {
			return nil
		}
		sources = append(sources, FileSource(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return sources, nil
}

func (ex Exclude) generated(name string) bool {
	if ex.MergedName != "" && name == ex.MergedName {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), "_normalized.gpx")
}

func sameDir(path, abs string) bool {
	p, err := filepath.Abs(path)
	return err == nil && p == abs
}
