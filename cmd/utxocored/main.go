package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kaspa402/utxocore/internal/config"
	"github.com/kaspa402/utxocore/internal/kaspa"
	"github.com/kaspa402/utxocore/internal/logger"
)

func main() {
	address := flag.String("address", "", "Kaspa address to inspect")
	amountStr := flag.String("amount", "", "sompi amount to select a payment for; skips health-only mode")
	env := flag.String("env", "production", "logger environment: production or development")
	flag.Parse()

	if err := logger.Init(*env); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *address == "" {
		fmt.Fprintln(os.Stderr, "usage: utxocored -address <kaspa-address> [-amount <sompi>]")
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	manager, err := kaspa.NewManager(cfg)
	if err != nil {
		logger.Fatal("manager construction failed", zap.Error(err))
	}
	manager.SetMetrics(kaspa.NewMetrics())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health, err := manager.WalletHealth(ctx, *address, cfg.Net)
	if err != nil {
		logger.Fatal("wallet health lookup failed", zap.Error(err))
	}
	printJSON(health)

	if *amountStr == "" {
		return
	}

	amount, ok := new(big.Int).SetString(*amountStr, 10)
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid -amount %q: must be a decimal sompi integer\n", *amountStr)
		os.Exit(2)
	}

	selection, err := manager.SelectForPayment(ctx, *address, cfg.Net, amount)
	if err != nil {
		logger.Fatal("selection failed", zap.Error(err))
	}
	defer manager.ReleaseSelection(selection)
	printJSON(selection)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
	}
}
