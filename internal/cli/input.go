package cli

import (
	"context"
	"errors"
	"os"
	"regexp"

	ocdsmerge "github.com/goliatone/go-ocdsmerge"
	"github.com/goliatone/go-ocdsmerge/internal/config"
	"github.com/goliatone/go-ocdsmerge/internal/hydrate"
	"github.com/goliatone/go-ocdsmerge/schema"
	"github.com/spf13/cobra"
)

// loadConfig reads --config when given and applies --schema over it.
func loadConfig(ctx context.Context, opts *RootOptions) (*config.File, error) {
	file := &config.File{}
	if opts.Config != "" {
		loaded, err := config.Load(ctx, nil, opts.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "loading configuration", err)
		}
		file = loaded
	}
	if opts.Schema != "" {
		file.Schema = opts.Schema
	}
	location, err := resolveSchema(ctx, file.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolving schema", err)
	}
	file.Schema = location
	return file, nil
}

var schemaTag = regexp.MustCompile(`^\d+__\d+__\d+$`)

// resolveSchema expands "latest" and bare tags such as "1__1__5" to published
// release schema URLs. Other values are returned unchanged.
func resolveSchema(ctx context.Context, value string) (string, error) {
	switch {
	case value == "latest":
		return schema.NewLoader().LatestReleaseSchemaURL(ctx, "")
	case schemaTag.MatchString(value):
		return schema.ReleaseSchemaURL(value), nil
	}
	return value, nil
}

// buildMerger constructs the merger described by file, logging to the
// command's stderr.
func buildMerger(cmd *cobra.Command, opts *RootOptions, file *config.File) (*ocdsmerge.Merger, error) {
	logger := opts.logger(cmd)
	merger, err := file.Merger(cmd.Context(),
		ocdsmerge.WithLogger(ocdsmerge.SlogLogger(logger)),
		ocdsmerge.WithWarningHandler(ocdsmerge.SlogWarningHandler(logger)),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "building merger", err)
	}
	return merger, nil
}

// readReleases decodes releases from each path in order. No paths, or "-",
// reads standard input.
func readReleases(cmd *cobra.Command, paths []string, format string) ([]any, error) {
	parsed, err := hydrate.ParseFormat(format)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid input format", err)
	}
	decoder := hydrate.NewDecoder(hydrate.WithFormat(parsed))
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	var releases []any
	for _, path := range paths {
		items, err := decodeSource(cmd, decoder, path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "reading releases", err)
		}
		releases = append(releases, items...)
	}
	return releases, nil
}

func decodeSource(cmd *cobra.Command, decoder *hydrate.Decoder, path string) ([]any, error) {
	if path == "-" {
		return decoder.DecodeReader(hydrate.Context{Source: "stdin"}, cmd.InOrStdin())
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return decoder.DecodeReader(hydrate.Context{Source: path}, file)
}

// mergeFailure maps merge errors to ExitFailure and everything else to
// ExitCommandError.
func mergeFailure(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	for _, target := range []error{
		ocdsmerge.ErrMissingDate,
		ocdsmerge.ErrNullDate,
		ocdsmerge.ErrNonStringDate,
		ocdsmerge.ErrNonObjectRelease,
		ocdsmerge.ErrInconsistentType,
		ocdsmerge.ErrDuplicateID,
		ocdsmerge.ErrOrderKey,
	} {
		if errors.Is(err, target) {
			return WrapExitError(ExitFailure, "merge failed", err)
		}
	}
	return WrapExitError(ExitCommandError, "merge failed", err)
}
