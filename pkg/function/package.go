package function

import (
	"path/filepath"
	"sort"
)

// Package is the manifest an uploader consumes: paths on disk plus files whose
// content is generated in memory. Building the archive is the uploader's job.
type Package struct {
	basePath string
	include  []string
	strings  map[string]string
}

// NewPackage starts a manifest whose relative paths resolve against basePath.
func NewPackage(basePath string) *Package {
	return &Package{
		basePath: filepath.Clean(basePath),
		strings:  map[string]string{},
	}
}

func (p *Package) BasePath() string {
	return p.basePath
}

// Include adds files or directories. Relative paths resolve against BasePath.
func (p *Package) Include(paths ...string) *Package {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.basePath, path)
		}
		p.include = append(p.include, filepath.Clean(path))
	}
	return p
}

// IncludeStrings adds generated files keyed by their path inside the package.
func (p *Package) IncludeStrings(files map[string]string) *Package {
	for name, content := range files {
		p.strings[name] = content
	}
	return p
}

// Paths returns the on-disk paths in insertion order.
func (p *Package) Paths() []string {
	out := make([]string, len(p.include))
	copy(out, p.include)
	return out
}

// Strings returns a copy of the generated files.
func (p *Package) Strings() map[string]string {
	out := make(map[string]string, len(p.strings))
	for k, v := range p.strings {
		out[k] = v
	}
	return out
}

// Files is the sorted manifest: on-disk paths followed by generated files.
func (p *Package) Files() []string {
	paths := p.Paths()
	sort.Strings(paths)
	generated := make([]string, 0, len(p.strings))
	for name := range p.strings {
		generated = append(generated, name)
	}
	sort.Strings(generated)
	return append(paths, generated...)
}
