// Package superbuild is the registry of third-party libraries the binding
// module is compiled against. The core SDK exports its own dependency list;
// this package merges that list with the fixed set of header-only libraries
// the binding sources require and hands back a link-ordered view.
package superbuild

import (
	"path/filepath"
	"sort"

	"github.com/voxim-io/voxim/internal/depgraph"
	"github.com/voxim-io/voxim/internal/models"
)

// builtin lists the libraries every binding build needs regardless of what
// the SDK config declares. Include dirs are relative to the SDK root.
func builtin() []*models.Dependency {
	return []*models.Dependency{
		{
			Name:        "fmt",
			Version:     "8.1.1",
			Kind:        models.LinkHeaderOnly,
			IncludeDirs: []string{"include/fmt"},
		},
		{
			Name:        "nlohmann_json",
			Version:     "3.11.2",
			Kind:        models.LinkHeaderOnly,
			IncludeDirs: []string{"include/nlohmann_json"},
		},
		{
			Name:        "pybind11",
			Version:     "2.11.1",
			Kind:        models.LinkHeaderOnly,
			IncludeDirs: []string{"include/pybind11"},
		},
		{
			Name:        "pybind11_json",
			Version:     "0.2.13",
			Kind:        models.LinkHeaderOnly,
			IncludeDirs: []string{"include/pybind11_json"},
			Requires:    []string{"pybind11", "nlohmann_json"},
		},
	}
}

// Registry resolves the binding build's dependency set against an SDK.
type Registry struct {
	graph *depgraph.Graph
	root  string
}

// NewRegistry builds a registry from the builtin set plus the dependencies
// the SDK export config declares. SDK entries win on name collision so a
// staged SDK can pin exact versions.
func NewRegistry(sdk models.SDKInfo) (*Registry, error) {
	graph := depgraph.New()
	for _, dep := range builtin() {
		graph.Add(dep)
	}
	for i := range sdk.Config.Dependencies {
		graph.Add(&sdk.Config.Dependencies[i])
	}

	if has, path := graph.Cycle(); has {
		return nil, &depgraph.CycleError{Path: path}
	}
	return &Registry{graph: graph, root: sdk.Root}, nil
}

// Lookup returns the registered dependency with the given name.
func (r *Registry) Lookup(name string) (*models.Dependency, bool) {
	return r.graph.Lookup(name)
}

// LinkOrder returns every dependency with requirements ahead of the
// packages that need them. The order is stable across runs.
func (r *Registry) LinkOrder() ([]*models.Dependency, error) {
	return r.graph.Sort()
}

// IncludeDirs returns the absolute include directories of every dependency,
// in link order with duplicates removed.
func (r *Registry) IncludeDirs() ([]string, error) {
	ordered, err := r.graph.Sort()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var dirs []string
	for _, dep := range ordered {
		for _, dir := range dep.IncludeDirs {
			abs := dir
			if !filepath.IsAbs(dir) {
				abs = filepath.Join(r.root, dir)
			}
			if !seen[abs] {
				seen[abs] = true
				dirs = append(dirs, abs)
			}
		}
	}
	return dirs, nil
}

// LinkLibs returns the -l names of every shared dependency, in link order.
func (r *Registry) LinkLibs() ([]string, error) {
	ordered, err := r.graph.Sort()
	if err != nil {
		return nil, err
	}

	var libs []string
	for _, dep := range ordered {
		if dep.Kind == models.LinkShared && dep.LinkName != "" {
			libs = append(libs, dep.LinkName)
		}
	}
	return libs, nil
}

// Names returns every registered dependency name, sorted.
func (r *Registry) Names() []string {
	ordered, err := r.graph.Sort()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(ordered))
	for _, dep := range ordered {
		names = append(names, dep.Name)
	}
	sort.Strings(names)
	return names
}
