package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"radiswap/internal/amount"
	"radiswap/internal/config"
	"radiswap/internal/pool"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reserveIn, err := amount.Parse(cfg.ReserveIn)
	if err != nil {
		return fmt.Errorf("reserve-in: %w", err)
	}
	reserveOut, err := amount.Parse(cfg.ReserveOut)
	if err != nil {
		return fmt.Errorf("reserve-out: %w", err)
	}
	input, err := amount.Parse(cfg.Amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	fee, err := amount.Parse(cfg.Fee)
	if err != nil {
		return fmt.Errorf("fee: %w", err)
	}

	output, err := pool.QuoteSwap(reserveIn, reserveOut, input, fee)
	if err != nil {
		return err
	}

	logger.Debug("quote",
		zap.String("reserve_in", amount.Format(reserveIn)),
		zap.String("reserve_out", amount.Format(reserveOut)),
		zap.String("amount", amount.Format(input)),
		zap.String("fee", amount.Format(fee)),
		zap.String("output", amount.Format(output)),
	)

	_, err = fmt.Fprintln(cmd.OutOrStdout(), amount.Format(output))
	return err
}
