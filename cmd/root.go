package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/saeedzahedi/pingcheck/core"
)

// errUnreachable marks a run whose verdict was negative, so the process
// exits non-zero without a usage splash.
var errUnreachable = errors.New("target is unreachable")

var (
	flagCount      int
	flagInterval   int
	flagTTL        int
	flagPrivileged bool
	flagVerbosity  uint32
)

var rootCmd = &cobra.Command{
	Use:   "pingcheck <ipv4-address>",
	Short: "pingcheck probes a host with ICMP echo requests",
	Long: "pingcheck sends a bounded sequence of ICMP echo requests to an IPv4 address " +
		"and exits successfully iff a majority of them were answered in time",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := core.DefaultSettings()
		settings.Count = flagCount
		settings.Interval = flagInterval
		settings.TTL = flagTTL
		settings.IsPrivileged = flagPrivileged
		settings.LoggingLevel = flagVerbosity

		runner, err := newRunner(args[0], settings)
		if err != nil {
			cmd.PrintErrf("error: %s\n", err)
			return err
		}

		runner.Start()
		if err := runner.Wait(); err != nil {
			// transport failures degrade to the verdict, as fewer replies
			cmd.PrintErrf("session error: %s\n", err)
		}

		printVerdict(runner.session)
		if !runner.session.Verdict() {
			return errUnreachable
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().IntVarP(&flagCount, "count", "c", core.MinCount, "number of echo requests to send (minimum 2)")
	rootCmd.Flags().IntVarP(&flagInterval, "interval", "i", 1000, "milliseconds between two echo requests")
	rootCmd.Flags().IntVarP(&flagTTL, "ttl", "t", 64, "IP time-to-live of outgoing requests")
	rootCmd.Flags().BoolVarP(&flagPrivileged, "privileged", "p", false, "use raw ICMP sockets instead of a datagram-oriented endpoint")
	rootCmd.Flags().Uint32VarP(&flagVerbosity, "verbosity", "v", 3, "logging level, 0 (panic) to 6 (trace)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
