package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRootCmd builds the root command per spec §6's CLI surface table:
// duskline [profile] [--offline] [--headless] [--instance NAME] [--attach NAME].
func newRootCmd() *cobra.Command {
	var offline, headless bool
	var instance, attach string

	cmd := &cobra.Command{
		Use:   "duskline [profile]",
		Short: "A terminal client for text-based multi-user games",
		Long: `duskline connects to a MUD over a line-oriented TCP/telnet stream,
renders a scrollback pane and an editable input line, and can run headless
behind a Unix control socket for other tools to drive.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if attach != "" {
				return runAttach(attach)
			}
			if headless && instance == "" {
				return fmt.Errorf("--headless requires --instance")
			}
			var profileName string
			if len(args) > 0 {
				profileName = args[0]
			}
			return runMain(runOpts{
				profileName: profileName,
				offline:     offline,
				headless:    headless,
				instance:    instance,
			})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "run against a built-in deterministic stand-in world instead of dialing out")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without a local terminal, serving only the control socket")
	cmd.Flags().StringVar(&instance, "instance", "", "instance name for the control socket (required with --headless)")
	cmd.Flags().StringVar(&attach, "attach", "", "attach a terminal-free control client to a running instance by name")

	return cmd
}
