package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Versioned   bool
	InputFormat string
	Output      string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [files...]",
		Short: "Merge releases into a compiled or versioned release",
		Long: `Merge releases of a single contracting process.

Input files may hold a release, an array of releases, a release package,
a record package or one JSON value per line. With no files, or "-",
releases are read from standard input.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Versioned, "versioned", false, "create a versioned release")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "auto", "input shape (auto|releases|release-package|record-package|release|lines)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions, paths []string) error {
	file, err := loadConfig(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("versioned") {
		file.Versioned = opts.Versioned
	}
	merger, err := buildMerger(cmd, opts.RootOptions, file)
	if err != nil {
		return err
	}
	releases, err := readReleases(cmd, paths, opts.InputFormat)
	if err != nil {
		return err
	}

	var doc map[string]any
	if file.Versioned {
		doc, err = merger.CreateVersionedRelease(releases)
	} else {
		doc, err = merger.CreateCompiledRelease(releases)
	}
	if err != nil {
		return mergeFailure(err)
	}

	if opts.Output == "" {
		return writeResult(cmd.OutOrStdout(), opts.Format, doc)
	}
	out, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "creating output file", err)
	}
	defer out.Close()
	if err := writeJSON(out, doc); err != nil {
		return WrapExitError(ExitCommandError, "writing output file", err)
	}
	if opts.Format == "text" {
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d release(s) into %s\n", len(releases), opts.Output)
	}
	return nil
}
