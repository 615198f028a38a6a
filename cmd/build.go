package cmd

import (
	"context"
	_ "embed"
	"os"

	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
)

//go:embed assets/Containerfile
var defaultDefinition []byte

// definitionCandidates are looked up in the working directory when no file
// is given.
var definitionCandidates = []string{"Containerfile", "Dockerfile"}

var buildTag string

var buildCmd = &cobra.Command{
	Use:   "build [definitionFile]",
	Short: "Build the sandbox image",
	Long: `Builds the image sandboxes run in.

Without an argument ./Containerfile or ./Dockerfile is used, falling back to
the built-in definition (Node.js, git and the common coding agents).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildTag, "tag", "t", "", "Image tag (default: backend.image from the config)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts := sandbox.BuildOptions{
		Tag:    buildTag,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
	opts.File, opts.Definition = resolveDefinition(args)
	if opts.File != "" {
		logInfo("Building from %s", opts.File)
	} else {
		logInfo("Building from the built-in definition")
	}

	sb, coord, err := newSandbox()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stop := coord.WatchSignals(cancel)
	defer stop()

	if _, err := sb.Build(ctx, opts); err != nil {
		return err
	}
	logSuccess("Built image")
	return nil
}

// resolveDefinition returns the definition file to build, or the built-in
// definition when none is given or found.
func resolveDefinition(args []string) (string, []byte) {
	if len(args) == 1 {
		return args[0], nil
	}
	for _, name := range definitionCandidates {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			return name, nil
		}
	}
	logging.Debug("no container definition in working directory, using built-in")
	return "", defaultDefinition
}
