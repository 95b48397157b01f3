package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	exitError       = 1
	exitNotAttached = 2
	exitIncomplete  = 3
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
}

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	endpoint string
	profile  string
	debug    bool
	visible  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "mailcdp",
		Short: "Automates the desktop mail client over the DevTools protocol",
		Long: `mailcdp attaches to the running mail client through its remote debugging
endpoint and drives the compose window: open a draft, fill its fields,
save it and close it again, checking after every step that the
application actually reflects the change.

Start the client with --remote-debugging-port=9222 first.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "mailcdp version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.endpoint, "endpoint", "", "Remote debugging endpoint (default from profile, 127.0.0.1:9222)")
	flags.StringVar(&opts.profile, "profile", "", "Path to a YAML profile describing the compose surface")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.visible, "visible", false, "Bring the application window to the front after attaching")

	rootCmd.AddCommand(newTargetsCmd(opts))
	rootCmd.AddCommand(newEvalCmd(opts))
	rootCmd.AddCommand(newComposeCmd(opts))
	rootCmd.AddCommand(newDraftCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	os.Exit(run(newRootCmd(), os.Args[1:]))
}

func run(rootCmd *cobra.Command, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	stderr := rootCmd.ErrOrStderr()
	switch {
	case errors.Is(err, errNotAttached):
		printWarn(stderr, "%s", err)
		return exitNotAttached
	case errors.Is(err, errIncomplete):
		printWarn(stderr, "%s", err)
		return exitIncomplete
	default:
		printFail(stderr, "Error: %s", err)
		return exitError
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mailcdp version %s\n", version)
		},
	}
}
