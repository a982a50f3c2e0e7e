package connect

import (
	"math/big"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	balanceChain      *string
	balanceWallet     *string
	balanceTokenChain *string
	balanceToken      *string
)

var BalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Query a wallet's native or token balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := parseChain(*balanceChain)
		if err != nil {
			return err
		}
		token, err := parseToken(*balanceTokenChain, *balanceToken)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		c, err := rt.registry.Get(chain)
		if err != nil {
			return err
		}

		var balance *big.Int
		if token.IsNative() {
			balance, err = c.GetNativeBalance(ctx, *balanceWallet)
		} else {
			balance, err = c.GetTokenBalance(ctx, *balanceWallet, token)
		}
		if err != nil {
			return err
		}
		decimals, decErr := c.FetchTokenDecimals(ctx, token)
		if decErr != nil {
			rt.logger.Debug("failed to fetch token decimals", zap.Stringer("token", token), zap.Error(decErr))
		}
		return writeJSON(cmd.OutOrStdout(), struct {
			Chain    string `json:"chain"`
			Wallet   string `json:"wallet"`
			Token    string `json:"token"`
			Balance  string `json:"balance"`
			Decimals *uint8 `json:"decimals,omitempty"`
		}{Chain: chain.String(), Wallet: *balanceWallet, Token: token.String(), Balance: balance.String(), Decimals: optional(decimals, decErr == nil)})
	},
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func init() {
	balanceChain = BalanceCmd.Flags().String("chain", "", "Chain to query")
	balanceWallet = BalanceCmd.Flags().String("wallet", "", "Wallet address")
	balanceTokenChain = BalanceCmd.Flags().String("token-chain", "", "Origin chain of the token")
	balanceToken = BalanceCmd.Flags().String("token", nativeTokenName, "Token address on its origin chain, or native")
}
