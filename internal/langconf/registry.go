package langconf

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Registry indexes loaded language configs by name and by extension.
// It is built once by Load and immutable afterwards, so it is safe
// for unlimited concurrent readers without locking.
type Registry struct {
	byName map[string]*Config
	byExt  map[string]*Config

	// extsByLength holds every claimed extension sorted longest
	// first, so multi-part extensions (".razor.cs") win over their
	// shorter suffixes (".cs") during file lookup.
	extsByLength []string
}

func newRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Config),
		byExt:  make(map[string]*Config),
	}
}

func (r *Registry) add(cfg *Config) error {
	if prev, ok := r.byName[cfg.Name]; ok {
		return &ConfigError{
			Path: cfg.Path,
			Err:  fmt.Errorf("language %q already defined by %s", cfg.Name, prev.Path),
		}
	}
	for _, ext := range cfg.Extensions {
		if prev, ok := r.byExt[ext]; ok {
			return &ConfigError{
				Path: cfg.Path,
				Err:  fmt.Errorf("extension %q already claimed by language %q (%s)", ext, prev.Name, prev.Path),
			}
		}
	}

	r.byName[cfg.Name] = cfg
	for _, ext := range cfg.Extensions {
		r.byExt[ext] = cfg
		r.extsByLength = append(r.extsByLength, ext)
	}
	sort.Slice(r.extsByLength, func(i, j int) bool {
		a, b := r.extsByLength[i], r.extsByLength[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return nil
}

// Len returns the number of loaded languages.
func (r *Registry) Len() int {
	return len(r.byName)
}

// Languages returns the loaded language names, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ByName returns the config for a language name.
func (r *Registry) ByName(name string) (*Config, bool) {
	cfg, ok := r.byName[name]
	return cfg, ok
}

// ByExtension returns the config claiming exactly the given
// extension. A missing leading dot is tolerated.
func (r *Registry) ByExtension(ext string) (*Config, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	cfg, ok := r.byExt[ext]
	return cfg, ok
}

// ForFile returns the config for a file path. The longest registered
// extension that suffix-matches the file name wins, so ".razor.cs"
// beats ".cs" for "view.razor.cs".
func (r *Registry) ForFile(path string) (*Config, bool) {
	base := strings.ToLower(filepath.Base(path))
	for _, ext := range r.extsByLength {
		if strings.HasSuffix(base, ext) {
			return r.byExt[ext], true
		}
	}
	return nil, false
}
