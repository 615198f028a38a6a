package sandbox

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
)

// BuildOptions describes an image build.
type BuildOptions struct {
	// File is the container definition. When empty, Definition is written
	// to a temporary build context instead.
	File       string
	Definition []byte

	// Context defaults to the directory of File
	Context string

	// Tag defaults to the configured image
	Tag string

	Stdout io.Writer
	Stderr io.Writer
}

// Build builds the sandbox image on the backend.
func (s *Sandbox) Build(ctx context.Context, opts BuildOptions) (*Result, error) {
	defer s.coord.Cleanup()

	if opts.File == "" && len(opts.Definition) == 0 {
		return nil, errors.ValidationError("no container definition given")
	}
	if opts.File != "" {
		info, err := os.Stat(opts.File)
		if err != nil {
			return nil, errors.ValidationErrorf("container definition %s not found", opts.File)
		}
		if info.IsDir() {
			return nil, errors.ValidationErrorf("container definition %s is a directory", opts.File)
		}
	}
	if opts.Tag == "" {
		opts.Tag = s.cfg.Backend.Image
	}
	if opts.Tag == "" {
		opts.Tag = config.DefaultImage
	}

	if err := s.mgr.EnsureReady(ctx, false); err != nil {
		return nil, err
	}

	if opts.File == "" {
		dir, err := os.MkdirTemp(s.tempRoot, config.AppName+"-build-*")
		if err != nil {
			return nil, errors.StepError("build", err)
		}
		s.coord.RemoveAllOnCleanup(dir)
		opts.File = filepath.Join(dir, "Containerfile")
		if err := os.WriteFile(opts.File, opts.Definition, 0644); err != nil {
			return nil, errors.StepError("build", err)
		}
		logging.Debug("using embedded container definition", "dir", dir)
	}
	if opts.Context == "" {
		opts.Context = filepath.Dir(opts.File)
	}

	runner := NewRunner(s.mgr, RunnerOptions{
		Executor:         s.exec,
		Clock:            s.clock,
		Timeouts:         TimeoutsFromConfig(s.cfg.Timeouts),
		MaxLaunchRetries: s.cfg.Backend.MaxLaunchRetries,
	})
	return runner.Build(ctx, runtime.BuildSpec{
		Tag:     opts.Tag,
		File:    opts.File,
		Context: opts.Context,
	}, opts.Stdout, opts.Stderr)
}
