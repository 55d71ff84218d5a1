// Package constants defines shared constant values.
package constants

// AppName is the project identifier used in logs and metadata.
const AppName = "voxim"

// CommandName is the primary CLI command name.
const CommandName = "voxim"

// PackageName is the importable package namespace the binding module
// belongs to.
const PackageName = "voxim"

// BindingModuleName is the file stem the shared module must carry so the
// runtime imports it as a private submodule of PackageName.
const BindingModuleName = "_voxim"

// LinkedModuleName is the file name the linker emits before the assembler
// renames it into its importable form.
const LinkedModuleName = "libvoxim_python.so"

// CorePackageConfigName is the export configuration file the dependency
// resolver searches for under the SDK tree.
const CorePackageConfigName = "voxim-config.json"

// PlanFileName is the serialized build plan written by configure.
const PlanFileName = "voxim-plan.json"

// ProjectConfigName is the optional project-level configuration file.
const ProjectConfigName = "voxim.yaml"
