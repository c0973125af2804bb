package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"swapCore/internal/engine"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	amountIn, err := flagBigInt(cmd, "amount-in")
	if err != nil {
		return err
	}
	reserveIn, err := flagBigInt(cmd, "reserve-in")
	if err != nil {
		return err
	}
	reserveOut, err := flagBigInt(cmd, "reserve-out")
	if err != nil {
		return err
	}

	amountOut, err := engine.GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), amountOut.String())
	return nil
}

func flagBigInt(cmd *cobra.Command, name string) (*big.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	parsed, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return parsed, nil
}
