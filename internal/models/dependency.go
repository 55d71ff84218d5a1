package models

// LinkKind describes how a dependency contributes to the link line.
type LinkKind string

const (
	// LinkShared links against a shared library under the SDK lib dir.
	LinkShared LinkKind = "shared"
	// LinkHeaderOnly contributes include directories only.
	LinkHeaderOnly LinkKind = "header-only"
)

// Dependency is one external library the binding module builds against.
// Entries come from the superbuild registry and the SDK export config.
type Dependency struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Kind        LinkKind `json:"kind"`
	IncludeDirs []string `json:"includeDirs,omitempty"`
	LinkName    string   `json:"linkName,omitempty"`
	Requires    []string `json:"requires,omitempty"`
}

func (d Dependency) String() string {
	return d.Name
}
