package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

// Info describes the host an install runs on.
type Info struct {
	// OS is the GOOS value of the host.
	OS string
	// Arch is the normalized architecture; ArchUnknown for unrecognized machines.
	Arch formula.Architecture
	// ArchRaw is the machine string the architecture was derived from.
	ArchRaw string
}

// Detector reports host platform information.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// HostDetector asks the kernel for the machine type through gopsutil and
// falls back to the architecture the binary was built for.
type HostDetector struct{}

// NewDetector creates a detector for the running host.
func NewDetector() *HostDetector {
	return &HostDetector{}
}

// Detect returns the host platform. Only a cancelled context is an error;
// gopsutil failures fall back to runtime.GOARCH.
func (d *HostDetector) Detect(ctx context.Context) (*Info, error) {
	raw := runtime.GOARCH

	stat, err := host.InfoWithContext(ctx)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
	}

	if err == nil && stat != nil && stat.KernelArch != "" {
		raw = stat.KernelArch
	}

	return NewInfo(runtime.GOOS, raw), nil
}

// StaticDetector always reports the same platform. It backs the --arch
// override and tests.
type StaticDetector struct {
	Info Info
}

// Detect returns a copy of the configured platform.
func (d *StaticDetector) Detect(_ context.Context) (*Info, error) {
	info := d.Info

	return &info, nil
}

// NewInfo normalizes a raw machine string for goos.
func NewInfo(goos, rawArch string) *Info {
	arch, ok := formula.ParseArchitecture(rawArch)
	if !ok {
		arch = formula.ArchUnknown
	}

	return &Info{
		OS:      goos,
		Arch:    arch,
		ArchRaw: rawArch,
	}
}

// ArchLabel renders the architecture for messages, keeping the raw machine
// name visible when it could not be mapped.
func (i *Info) ArchLabel() string {
	if i.Arch == formula.ArchUnknown && i.ArchRaw != "" {
		return fmt.Sprintf("unknown (%s)", i.ArchRaw)
	}

	return i.Arch.String()
}
