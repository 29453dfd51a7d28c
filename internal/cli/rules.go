package cli

import (
	ocdsmerge "github.com/goliatone/go-ocdsmerge"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RuleEntry is one line of the rules listing.
type RuleEntry struct {
	Path      string `yaml:"path" json:"path"`
	Directive string `yaml:"directive" json:"directive"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the merge rules in effect",
		Long: `Print the merge directives compiled from the schema and the
configuration file, ordered by path. Text output is YAML that can be pasted
into the rules section of a configuration file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadConfig(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			merger, err := buildMerger(cmd, rootOpts, file)
			if err != nil {
				return err
			}
			entries := ruleEntries(merger.Rules())
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: entries})
			}
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(map[string][]RuleEntry{"rules": entries}); err != nil {
				return err
			}
			return encoder.Close()
		},
	}
}

func ruleEntries(rules ocdsmerge.Rules) []RuleEntry {
	entries := make([]RuleEntry, 0, rules.Len())
	rules.Each(func(path ocdsmerge.RulePath, directive ocdsmerge.Directive) {
		entries = append(entries, RuleEntry{Path: path.String(), Directive: directive.String()})
	})
	return entries
}
