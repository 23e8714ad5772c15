package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "xvenue-arb",
	Short: "Cross-venue prediction-market arbitrage bot",
	Long: `Cross-venue arbitrage bot for binary prediction markets.

It pairs equivalent contracts listed on two venues, streams live
top-of-book prices from both, and detects opportunities where buying the
YES side on one venue and the NO side on the other costs less than the
contract's guaranteed payout net of fees. Execution places paired IOC
orders across both venues; dry-run mode detects and logs only.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
