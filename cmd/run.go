package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbcore/xvenue-arb/internal/app"
	"github.com/arbcore/xvenue-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage bot",
	Long: `Starts the cross-venue arbitrage bot, which will:
1. Run one-shot catalog discovery across both venues and freeze the
   resulting market topology
2. Stream live top-of-book prices from both venues into that topology
3. Detect arbitrage opportunities (combined leg cost under the configured
   threshold)
4. Execute paired IOC orders, or log-only in dry-run mode

Use --force-discovery to bypass the cached Venue B market catalog on startup.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("force-discovery", false, "Bypass the cached Venue B market catalog on startup")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	forceDiscovery, _ := cmd.Flags().GetBool("force-discovery")

	opts := &app.Options{
		ForceDiscovery: forceDiscovery,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
