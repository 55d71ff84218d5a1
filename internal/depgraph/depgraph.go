// Package depgraph orders native build dependencies. A dependency must be
// resolved and appear on the link line before anything that requires it, so
// the graph offers cycle detection and a deterministic topological sort.
package depgraph

import (
	"sort"

	"github.com/voxim-io/voxim/internal/models"
)

type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	out := "dependency cycle:"
	for i, name := range e.Path {
		if i > 0 {
			out += " ->"
		}
		out += " " + name
	}
	return out
}

// Graph is a directed graph of named dependencies. Edges point from a
// requirement to the package that requires it.
type Graph struct {
	nodes      map[string]*models.Dependency
	requires   map[string][]string // package -> its requirements
	requiredBy map[string][]string // requirement -> packages that need it
}

func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*models.Dependency),
		requires:   make(map[string][]string),
		requiredBy: make(map[string][]string),
	}
}

// Add registers a dependency and the edges its Requires list implies.
// Requirements that have not been added yet may be added later; Sort
// reports the ones that never were.
func (g *Graph) Add(dep *models.Dependency) {
	if _, exists := g.nodes[dep.Name]; !exists {
		g.requires[dep.Name] = []string{}
		g.requiredBy[dep.Name] = []string{}
	}
	g.nodes[dep.Name] = dep
	for _, req := range dep.Requires {
		if !contains(g.requires[dep.Name], req) {
			g.requires[dep.Name] = append(g.requires[dep.Name], req)
		}
		if !contains(g.requiredBy[req], dep.Name) {
			g.requiredBy[req] = append(g.requiredBy[req], dep.Name)
		}
	}
}

// Dependents returns the packages that directly require name, sorted.
func (g *Graph) Dependents(name string) []string {
	out := append([]string(nil), g.requiredBy[name]...)
	sort.Strings(out)
	return out
}

// Lookup returns the dependency registered under name.
func (g *Graph) Lookup(name string) (*models.Dependency, bool) {
	dep, ok := g.nodes[name]
	return dep, ok
}

// Missing returns requirement names referenced by an edge but never added.
func (g *Graph) Missing() []string {
	var missing []string
	for _, reqs := range g.requires {
		for _, req := range reqs {
			if _, ok := g.nodes[req]; !ok && !contains(missing, req) {
				missing = append(missing, req)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Cycle reports whether the graph contains a cycle, and if so the path.
func (g *Graph) Cycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cyclePath []string

	var walk func(name string) bool
	walk = func(name string) bool {
		visited[name] = true
		onStack[name] = true

		for _, req := range g.requires[name] {
			if _, ok := g.nodes[req]; !ok {
				continue
			}
			if !visited[req] {
				cameFrom[req] = name
				if walk(req) {
					return true
				}
			} else if onStack[req] {
				cyclePath = []string{req}
				for curr := name; curr != req; curr = cameFrom[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{req}, cyclePath...)
				return true
			}
		}

		onStack[name] = false
		return false
	}

	names := g.sortedNames()
	for _, name := range names {
		if !visited[name] {
			if walk(name) {
				return true, cyclePath
			}
		}
	}
	return false, nil
}

// Sort returns every dependency with requirements before the packages that
// need them. The order is deterministic: ties break on name.
func (g *Graph) Sort() ([]*models.Dependency, error) {
	if has, path := g.Cycle(); has {
		return nil, &CycleError{Path: path}
	}

	visited := make(map[string]bool)
	var ordered []*models.Dependency

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true

		reqs := append([]string(nil), g.requires[name]...)
		sort.Strings(reqs)
		for _, req := range reqs {
			if _, ok := g.nodes[req]; ok {
				visit(req)
			}
		}
		ordered = append(ordered, g.nodes[name])
	}

	for _, name := range g.sortedNames() {
		visit(name)
	}
	return ordered, nil
}

// Closure returns name's transitive requirements, in link order, including
// name itself last.
func (g *Graph) Closure(name string) ([]*models.Dependency, error) {
	if _, ok := g.nodes[name]; !ok {
		return nil, nil
	}

	wanted := map[string]bool{name: true}
	var mark func(n string)
	mark = func(n string) {
		for _, req := range g.requires[n] {
			if _, ok := g.nodes[req]; ok && !wanted[req] {
				wanted[req] = true
				mark(req)
			}
		}
	}
	mark(name)

	all, err := g.Sort()
	if err != nil {
		return nil, err
	}
	var out []*models.Dependency
	for _, dep := range all {
		if wanted[dep.Name] {
			out = append(out, dep)
		}
	}
	return out, nil
}

func (g *Graph) sortedNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(slice []string, value string) bool {
	for _, s := range slice {
		if s == value {
			return true
		}
	}
	return false
}
