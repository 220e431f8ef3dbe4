// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container locates a container runtime and runs conversion images.
// Implements: prd004-conversion (R4.1-R4.4);
//
//	docs/ARCHITECTURE.md § Conversion.
package container

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runtime provides the container operations the conversion stage needs:
// availability probing, image verification, and piped execution.
type Runtime interface {
	// Name returns the runtime binary name ("docker" or "podman").
	Name() string

	// Available reports whether the binary exists on PATH and its daemon
	// or service answers an info command.
	Available() bool

	// ImageExists returns nil when the named image is present locally.
	ImageExists(image string) error

	// Run executes the image once, piping stdin through to stdout.
	Run(image string, stdin io.Reader, stdout io.Writer) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunPiped(name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (osExecutor) RunPiped(name string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	return cmd.Run()
}

// spec describes one supported runtime binary. Docker and Podman share run
// semantics but check image existence with different subcommands.
type spec struct {
	bin        string
	imageCheck []string
}

// specs is the probe order: Docker first, Podman as fallback.
var specs = []spec{
	{bin: "docker", imageCheck: []string{"image", "inspect"}},
	{bin: "podman", imageCheck: []string{"image", "exists"}},
}

type cliRuntime struct {
	spec
	exec executor
}

func (r *cliRuntime) Name() string { return r.bin }

func (r *cliRuntime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *cliRuntime) ImageExists(image string) error {
	args := append(append([]string{}, r.imageCheck...), image)
	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *cliRuntime) Run(image string, stdin io.Reader, stdout io.Writer) error {
	if err := r.exec.RunPiped(r.bin, []string{"run", "--rm", "-i", image}, stdin, stdout); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, image, err)
	}
	return nil
}

var defaultExec executor = osExecutor{}

// Detect probes the supported runtimes in order and returns the first that
// is operational.
func Detect() (Runtime, error) {
	return detect(defaultExec)
}

func detect(exec executor) (Runtime, error) {
	for _, s := range specs {
		rt := &cliRuntime{spec: s, exec: exec}
		if rt.Available() {
			return rt, nil
		}
	}
	return nil, fmt.Errorf("no container runtime available: tried %s", strings.Join(runtimeNames(), ", "))
}

// Select returns the named runtime without probing alternatives. An empty
// name falls back to Detect order.
func Select(name string) (Runtime, error) {
	return selectRuntime(name, defaultExec)
}

func selectRuntime(name string, exec executor) (Runtime, error) {
	if name == "" {
		return detect(exec)
	}
	for _, s := range specs {
		if s.bin != name {
			continue
		}
		rt := &cliRuntime{spec: s, exec: exec}
		if !rt.Available() {
			return nil, fmt.Errorf("container runtime %s is not operational", name)
		}
		return rt, nil
	}
	return nil, fmt.Errorf("unknown container runtime %q (supported: %s)", name, strings.Join(runtimeNames(), ", "))
}

func runtimeNames() []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.bin
	}
	return names
}
