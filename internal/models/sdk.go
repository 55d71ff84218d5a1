package models

// SDKConfig mirrors the core package's export configuration file
// (voxim-config.json) found under the staged SDK tree.
type SDKConfig struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	LibDir       string       `json:"libDir"`
	IncludeDirs  []string     `json:"includeDirs"`
	Libraries    []string     `json:"libraries"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// SDKInfo is the resolver's result: where the SDK lives and what its export
// configuration declares.
type SDKInfo struct {
	Root       string    `json:"root"`
	ConfigPath string    `json:"configPath"`
	Config     SDKConfig `json:"config"`
}
