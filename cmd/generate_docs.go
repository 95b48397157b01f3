package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/mailcdp/internal/config"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate CLI and compose surface documentation",
		Long: `Generate markdown documentation for every command and for the default
compose surface. The output is built from the command definitions and the
built-in profile, so it is always in sync with the binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			markdown := generateMarkdown(cmd.Root(), config.DefaultProfile())

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				printOK(cmd.ErrOrStderr(), "documentation written to %s", outputFile)
				return nil
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func generateMarkdown(root *cobra.Command, profile config.Profile) string {
	var sb strings.Builder

	sb.WriteString("# mailcdp Reference\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the command definitions.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	sb.WriteString("- [Commands](#commands)\n")
	sb.WriteString("- [Compose Surface](#compose-surface)\n")
	sb.WriteString("- [Environment](#environment)\n\n")

	sb.WriteString("## Global Flags\n\n")
	writeFlags(&sb, root.PersistentFlags())

	sb.WriteString("## Commands\n\n")
	for _, cmd := range visibleCommands(root) {
		writeCommand(&sb, cmd)
	}

	sb.WriteString(generateSurfaceMarkdown(profile))

	sb.WriteString("## Environment\n\n")
	sb.WriteString("Profile settings can be overridden from the environment; flags take precedence.\n\n")
	for _, v := range []string{
		"MAILCDP_ENDPOINT", "MAILCDP_PROFILE", "MAILCDP_POLL_ATTEMPTS",
		"MAILCDP_POLL_INTERVAL_MS", "MAILCDP_ATTACH_VISIBLE",
		"INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "AUDIT_LOGGING_ENABLED",
	} {
		sb.WriteString(fmt.Sprintf("- `%s`\n", v))
	}
	sb.WriteString("\n")

	return sb.String()
}

// visibleCommands flattens the command tree depth first, sorted by path.
func visibleCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		for _, sub := range c.Commands() {
			if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
				continue
			}
			out = append(out, sub)
			walk(sub)
		}
	}
	walk(root)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CommandPath() < out[j].CommandPath()
	})
	return out
}

func writeCommand(sb *strings.Builder, cmd *cobra.Command) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", cmd.CommandPath()))
	if cmd.Short != "" {
		sb.WriteString(cmd.Short + "\n\n")
	}
	if cmd.Runnable() {
		sb.WriteString(fmt.Sprintf("```\n%s\n```\n\n", cmd.UseLine()))
	}
	writeFlags(sb, cmd.LocalNonPersistentFlags())
}

func writeFlags(sb *strings.Builder, flags *pflag.FlagSet) {
	if !flags.HasAvailableFlags() {
		return
	}
	sb.WriteString("**Flags:**\n")
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		sb.WriteString(fmt.Sprintf("- `--%s` (%s): %s", f.Name, f.Value.Type(), f.Usage))
		if f.DefValue != "" && f.DefValue != "false" {
			sb.WriteString(fmt.Sprintf(" (default `%s`)", f.DefValue))
		}
		sb.WriteString("\n")
	})
	sb.WriteString("\n")
}

func generateSurfaceMarkdown(profile config.Profile) string {
	var sb strings.Builder
	s := profile.Surface

	sb.WriteString("## Compose Surface\n\n")
	sb.WriteString("The built-in profile expects the following objects in the application window.\n\n")
	sb.WriteString(fmt.Sprintf("- Registry: `%s`\n", s.Registry))
	sb.WriteString(fmt.Sprintf("- Open: `%s`\n", s.Open))
	sb.WriteString(fmt.Sprintf("- Save: `draft.%s()`\n", s.Save))
	sb.WriteString(fmt.Sprintf("- Dirty flag: `draft.%s`\n\n", s.Dirty))

	sb.WriteString("| Field | Getter | Setter | Match |\n")
	sb.WriteString("|-------|--------|--------|-------|\n")
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := s.Fields[name]
		setter := "assignment"
		if f.Set != "" {
			setter = "`" + f.Set + "()`"
		}
		match := f.Match
		if match == "" {
			match = config.MatchEqual
		}
		sb.WriteString(fmt.Sprintf("| %s | `%s` | %s | %s |\n", name, f.Get, setter, match))
	}
	sb.WriteString("\n")

	sb.WriteString("Close actions, tried in order:\n\n")
	for i, c := range s.Close {
		sb.WriteString(fmt.Sprintf("%d. `%s`\n", i+1, c))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Polling: %d attempts every %s, %d write attempts per field.\n\n",
		profile.Poll.Attempts, profile.Poll.Interval, profile.Poll.MutationAttempts))

	return sb.String()
}
