package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arbcore/xvenue-arb/pkg/config"
	"github.com/arbcore/xvenue-arb/pkg/wallet"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check Venue B wallet balances and positions",
	Long: `Display the current holdings of the Venue B (Polymarket-shaped) wallets.
For the signing address (derived from VENUE_B_PRIVATE_KEY):
- MATIC balance (for gas)
- USDC balance (for trading)
- USDC allowance (approved to the CTF Exchange)
For the funder address (or the signing address when no funder is set):
- Active positions (outcome tokens held)`,
	RunE: runBalance,
}

var showPositions bool

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().BoolVarP(&showPositions, "positions", "p", true, "Show active positions")
}

func runBalance(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.VenueBPrivateKey == "" {
		return fmt.Errorf("VENUE_B_PRIVATE_KEY not set in environment")
	}

	privateKey, err := crypto.HexToECDSA(cfg.VenueBPrivateKey)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	// Positions are held by the funder wallet when one is configured
	// (Gnosis Safe proxy); otherwise by the EOA itself.
	positionsOwner := cfg.VenueBFunderAddr
	if positionsOwner == "" {
		positionsOwner = address.Hex()
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	walletClient, err := wallet.NewClient(cfg.VenueBRPCURL, logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	fmt.Printf("=== Venue B Funder Wallet Balance Sheet ===\n\n")
	fmt.Printf("Signing Address: %s\n", address.Hex())
	if cfg.VenueBFunderAddr != "" {
		fmt.Printf("Funder Address:  %s\n", cfg.VenueBFunderAddr)
	}
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balances, err := walletClient.GetBalances(ctx, address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	maticFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.MATIC), big.NewFloat(1e18))
	fmt.Printf("MATIC Balance: %s MATIC\n", maticFloat.Text('f', 6))

	usdcFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.USDC), big.NewFloat(1e6))
	fmt.Printf("USDC Balance: %s USDC\n", usdcFloat.Text('f', 2))

	allowanceFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.USDCAllowance), big.NewFloat(1e6))
	if balances.USDCAllowance.Cmp(big.NewInt(0).SetUint64(1e18)) > 0 {
		fmt.Printf("USDC Allowance: Unlimited\n")
	} else {
		fmt.Printf("USDC Allowance: %s USDC\n", allowanceFloat.Text('f', 2))
	}

	if showPositions {
		fmt.Printf("\n=== Active Positions ===\n\n")
		positions, err := walletClient.GetPositions(ctx, positionsOwner)
		if err != nil {
			fmt.Printf("Error fetching positions: %v\n", err)
		} else if len(positions) == 0 {
			fmt.Printf("No active positions\n")
		} else {
			totalValue := 0.0
			for _, pos := range positions {
				fmt.Printf("Market: %s\n", pos.MarketSlug)
				fmt.Printf("  Outcome: %s\n", pos.Outcome)
				fmt.Printf("  Size: %.2f tokens\n", pos.Size)
				fmt.Printf("  Value: $%.2f\n\n", pos.Value)
				totalValue += pos.Value
			}
			fmt.Printf("Total Position Value: $%.2f\n", totalValue)
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Ready to trade: ")
	if balances.USDC.Cmp(big.NewInt(1000000)) >= 0 && balances.USDCAllowance.Cmp(big.NewInt(0)) > 0 {
		fmt.Printf("YES\n")
	} else {
		fmt.Printf("NO\n")
		if balances.USDC.Cmp(big.NewInt(1000000)) < 0 {
			fmt.Printf("  - Need more USDC (minimum $1.00)\n")
		}
		if balances.USDCAllowance.Cmp(big.NewInt(0)) == 0 {
			fmt.Printf("  - Need to approve USDC spending: go run . approve\n")
		}
	}

	return nil
}
