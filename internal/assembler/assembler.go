// Package assembler compiles the binding sources and links them into a
// single shared module. The linked file then gets renamed and repositioned
// so the interpreter can import it as a private submodule of the package.
package assembler

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/voxim-io/voxim/internal/models"
	"github.com/voxim-io/voxim/internal/perf"
)

// Runner executes one toolchain invocation and returns its combined
// output. Tests substitute a recording implementation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NewExecRunner returns a Runner backed by the real toolchain.
func NewExecRunner() Runner {
	return execRunner{}
}

// CompileError carries the toolchain output of a failed compilation.
type CompileError struct {
	Source string
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	return "compiling " + e.Source + " failed: " + e.Err.Error()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// LinkError carries the toolchain output of a failed link.
type LinkError struct {
	Output string
	Err    error
}

func (e *LinkError) Error() string {
	return "linking failed: " + e.Err.Error()
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// ProgressFunc is invoked after each source finishes compiling.
type ProgressFunc func(done int, total int, source string)

// Assembler drives a build plan through compile, link and reposition.
type Assembler struct {
	fs       afero.Fs
	runner   Runner
	parallel int

	OnProgress ProgressFunc
	// OnLink is invoked once, with the link target name, before the link
	// step starts.
	OnLink func(output string)
}

func New(fs afero.Fs, runner Runner) *Assembler {
	return &Assembler{
		fs:       fs,
		runner:   runner,
		parallel: runtime.NumCPU(),
	}
}

// Assemble runs the full pipeline and returns the absolute path of the
// importable module inside the build tree.
func (a *Assembler) Assemble(ctx context.Context, plan *models.Plan) (string, error) {
	ctx, span := perf.StartSpan(ctx, "assembler.assemble",
		perf.WithAttributes(attribute.String("module", plan.ModuleName)))
	defer span.End()

	objects, err := a.compileAll(ctx, plan)
	if err != nil {
		return "", err
	}

	if a.OnLink != nil {
		a.OnLink(plan.LinkedName)
	}

	linkedPath, err := a.link(ctx, plan, objects)
	if err != nil {
		return "", err
	}

	return a.reposition(plan, linkedPath)
}

// compileAll compiles every source concurrently. Object files are named
// after the source stem so the link line stays stable across runs.
func (a *Assembler) compileAll(ctx context.Context, plan *models.Plan) ([]string, error) {
	ctx, span := perf.StartSpan(ctx, "assembler.compile")
	defer span.End()

	objDir := filepath.Join(plan.BuildDir, "obj")
	if err := a.fs.MkdirAll(objDir, 0755); err != nil {
		return nil, err
	}

	objects := make([]string, len(plan.Sources))
	total := len(plan.Sources)

	var mu sync.Mutex
	done := 0

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(a.parallel)
	for i, source := range plan.Sources {
		group.Go(func() error {
			object := filepath.Join(objDir, objectName(i, source))
			if err := a.compile(ctx, plan, source, object); err != nil {
				return err
			}
			objects[i] = object

			mu.Lock()
			done++
			progressed := done
			mu.Unlock()
			if a.OnProgress != nil {
				a.OnProgress(progressed, total, source)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return objects, nil
}

func (a *Assembler) compile(ctx context.Context, plan *models.Plan, source string, object string) error {
	ctx, span := perf.StartSpan(ctx, "assembler.compile.unit",
		perf.WithAttributes(attribute.String("source", source)))
	defer span.End()

	args := []string{"-c", source, "-o", object}
	for _, dir := range plan.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	for _, define := range plan.Defines {
		args = append(args, "-D"+define)
	}
	args = append(args, plan.CompileFlags...)

	output, err := a.runner.Run(ctx, compilerFor(plan, source), args...)
	if err != nil {
		return &CompileError{Source: source, Output: string(output), Err: err}
	}
	return nil
}

// compilerFor routes .cu units to the CUDA compiler when the plan names
// one; everything else goes through the host compiler.
func compilerFor(plan *models.Plan, source string) string {
	if filepath.Ext(source) == ".cu" && plan.CudaCompiler != "" {
		return plan.CudaCompiler
	}
	return plan.Compiler
}

// link produces the shared module under the linker's name. The importable
// name comes later; linking under the lib prefix keeps the toolchain's
// soname handling conventional.
func (a *Assembler) link(ctx context.Context, plan *models.Plan, objects []string) (string, error) {
	ctx, span := perf.StartSpan(ctx, "assembler.link")
	defer span.End()

	linkedPath := filepath.Join(plan.BuildDir, plan.LinkedName)

	args := append([]string{}, plan.LinkFlags...)
	args = append(args, "-o", linkedPath)
	args = append(args, objects...)
	args = append(args, "-L"+plan.SDKLibDir)
	for _, lib := range plan.LinkLibs {
		args = append(args, "-l"+lib)
	}
	for _, rpath := range plan.RPaths {
		args = append(args, "-Wl,-rpath,"+rpath)
	}

	output, err := a.runner.Run(ctx, plan.Linker, args...)
	if err != nil {
		return "", &LinkError{Output: string(output), Err: err}
	}
	return linkedPath, nil
}

// reposition moves the linked file to its importable location inside the
// build tree, lib/voxim/_voxim.so, replacing any previous build.
func (a *Assembler) reposition(plan *models.Plan, linkedPath string) (string, error) {
	outputPath := filepath.Join(plan.BuildDir, plan.OutputPath)
	if err := a.fs.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", err
	}

	exists, err := afero.Exists(a.fs, outputPath)
	if err != nil {
		return "", err
	}
	if exists {
		if err := a.fs.Remove(outputPath); err != nil {
			return "", err
		}
	}
	if err := a.fs.Rename(linkedPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// objectName is prefixed with the source's position in the sorted plan so
// same-named sources from different directories cannot collide.
func objectName(index int, source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%02d_%s.o", index, stem)
}
