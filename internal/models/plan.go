package models

// BuildType selects the optimization profile for the native build.
type BuildType string

const (
	Release        BuildType = "release"
	Debug          BuildType = "debug"
	RelWithDebInfo BuildType = "relwithdebinfo"
)

// Plan is the fully derived build configuration. For a fixed set of inputs
// the derivation must produce an identical plan, so every slice is kept in
// sorted or fixed declaration order.
type Plan struct {
	ModuleName    string    `json:"moduleName"`
	PackageDir    string    `json:"packageDir"`
	BuildDir      string    `json:"buildDir"`
	BuildType     BuildType `json:"buildType"`
	CudaVersion   string    `json:"cudaVersion"`
	CudaArchs     []string  `json:"cudaArchs,omitempty"`
	PythonVersion string    `json:"pythonVersion"`

	Compiler string `json:"compiler"`
	Linker   string `json:"linker"`
	// CudaCompiler compiles .cu sources; Compiler handles the rest.
	CudaCompiler string `json:"cudaCompiler"`

	Sources      []string `json:"sources"`
	IncludeDirs  []string `json:"includeDirs"`
	Defines      []string `json:"defines"`
	CompileFlags []string `json:"compileFlags"`
	LinkFlags    []string `json:"linkFlags"`
	LinkLibs     []string `json:"linkLibs"`
	RPaths       []string `json:"rpaths"`

	SDKRoot    string `json:"sdkRoot"`
	SDKLibDir  string `json:"sdkLibDir"`
	ConfigPath string `json:"configPath"`

	// LinkedName is the file the linker writes; OutputPath is where the
	// assembler repositions it, relative to BuildDir.
	LinkedName string `json:"linkedName"`
	OutputPath string `json:"outputPath"`
}

// Artifact describes a staged build output.
type Artifact struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Mode        uint32 `json:"mode"`
}
