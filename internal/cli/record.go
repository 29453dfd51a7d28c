package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-ocdsmerge/pkg/activity"
	"github.com/goliatone/go-ocdsmerge/pkg/state"
	"github.com/spf13/cobra"
)

// RecordOptions holds flags shared by the record subcommands.
type RecordOptions struct {
	*RootOptions
	Database    string
	OCID        string
	Versioned   bool
	InputFormat string
	ETag        string
	Snapshot    string
	Actor       string
}

// RecordSummary describes a stored record after an append.
type RecordSummary struct {
	OCID       string `json:"ocid"`
	Kind       string `json:"kind"`
	SnapshotID string `json:"snapshot_id"`
	ETag       string `json:"etag"`
	Releases   int    `json:"releases"`
}

// NewRecordCommand creates the record command group.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Maintain merged records in a SQLite database",
		Long: `Maintain merged records incrementally.

Each record is the compiled or versioned release of one ocid. New releases
are folded into the stored record without re-reading earlier releases.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "ocdsmerge.db", "SQLite database path")
	cmd.PersistentFlags().BoolVar(&opts.Versioned, "versioned", false, "use the versioned record")

	cmd.AddCommand(newRecordAppendCommand(opts))
	cmd.AddCommand(newRecordShowCommand(opts))
	cmd.AddCommand(newRecordListCommand(opts))

	return cmd
}

func newRecordAppendCommand(opts *RecordOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "append [files...]",
		Short:        "Fold releases into the stored record of an ocid",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordAppend(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.OCID, "ocid", "", "record ocid (defaults to the ocid of the first release)")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "auto", "input shape (auto|releases|release-package|record-package|release|lines)")
	cmd.Flags().StringVar(&opts.ETag, "if-match", "", "fail unless the stored record has this etag")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "snapshot id to record (generated when empty)")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "actor recorded on activity events")
	return cmd
}

func newRecordShowCommand(opts *RecordOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "show <ocid>",
		Short:        "Print the stored record of an ocid",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *state.SQLiteStore) error {
				ref := state.Ref{OCID: args[0], Kind: opts.kind()}
				doc, _, ok, err := store.Load(cmd.Context(), ref)
				if err != nil {
					return WrapExitError(ExitCommandError, "loading record", err)
				}
				if !ok {
					return WrapExitError(ExitFailure, fmt.Sprintf("no %s record for %s", ref.Kind, ref.OCID), nil)
				}
				return writeResult(cmd.OutOrStdout(), opts.Format, doc)
			})
		},
	}
}

func newRecordListCommand(opts *RecordOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List the ocids with a stored record",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *state.SQLiteStore) error {
				ocids, err := store.OCIDs(cmd.Context(), opts.kind())
				if err != nil {
					return WrapExitError(ExitCommandError, "listing records", err)
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: ocids})
				}
				for _, ocid := range ocids {
					fmt.Fprintln(cmd.OutOrStdout(), ocid)
				}
				return nil
			})
		},
	}
}

func runRecordAppend(cmd *cobra.Command, opts *RecordOptions, paths []string) error {
	file, err := loadConfig(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	merger, err := buildMerger(cmd, opts.RootOptions, file)
	if err != nil {
		return err
	}
	releases, err := readReleases(cmd, paths, opts.InputFormat)
	if err != nil {
		return err
	}
	ref := state.Ref{OCID: opts.OCID, Kind: opts.kind()}
	if ref.OCID == "" {
		ref.OCID = firstOCID(releases)
	}

	return withStore(opts, func(store *state.SQLiteStore) error {
		updater := state.Updater{
			Store:   store,
			Merger:  merger,
			Emitter: activity.NewEmitter(activity.Hooks{logHook(opts.logger(cmd))}, activity.Config{Enabled: opts.Verbose}),
			ActorID: opts.Actor,
		}
		_, meta, err := updater.Append(cmd.Context(), ref, state.Meta{ETag: opts.ETag, SnapshotID: opts.Snapshot}, releases)
		if err != nil {
			if errors.Is(err, state.ErrETagMismatch) || errors.Is(err, state.ErrInvalidRef) {
				return WrapExitError(ExitFailure, "append rejected", err)
			}
			return mergeFailure(err)
		}
		summary := RecordSummary{
			OCID:       ref.OCID,
			Kind:       string(ref.Kind),
			SnapshotID: meta.SnapshotID,
			ETag:       meta.ETag,
			Releases:   meta.Releases,
		}
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summary})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d release(s), etag %s\n",
			summary.Kind, summary.OCID, summary.Releases, summary.ETag)
		return nil
	})
}

func (o *RecordOptions) kind() state.Kind {
	if o.Versioned {
		return state.KindVersioned
	}
	return state.KindCompiled
}

func withStore(opts *RecordOptions, fn func(*state.SQLiteStore) error) error {
	store, err := state.OpenSQLite(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer store.Close()
	return fn(store)
}

func firstOCID(releases []any) string {
	for _, release := range releases {
		if doc, ok := release.(map[string]any); ok {
			if ocid, ok := doc["ocid"].(string); ok {
				return ocid
			}
		}
	}
	return ""
}

// logHook logs activity events at debug level.
func logHook(logger *slog.Logger) activity.ActivityHook {
	return activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		logger.DebugContext(ctx, "activity",
			slog.String("verb", event.Verb),
			slog.String("object", event.ObjectID),
			slog.Any("metadata", event.Metadata),
		)
		return nil
	})
}
