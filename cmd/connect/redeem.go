package connect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

var RedeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Complete token bridge transfers",
}

var redeemPayer *string

var redeemBuildCmd = &cobra.Command{
	Use:   "build [VAA]",
	Short: "Build the unsigned transaction that completes the transfer in a hex-encoded VAA",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, p, err := decodeTransferVAA(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		c, err := rt.registry.Get(p.ToChain)
		if err != nil {
			return err
		}
		tx, err := c.Redeem(ctx, raw, *redeemPayer)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), tx)
	},
}

var redeemStatusCmd = &cobra.Command{
	Use:   "status [VAA]",
	Short: "Check whether the transfer in a hex-encoded VAA has been completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, p, err := decodeTransferVAA(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		done, err := rt.registry.IsTransferCompleted(ctx, raw)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), struct {
			Chain     string `json:"chain"`
			Completed bool   `json:"completed"`
		}{Chain: p.ToChain.String(), Completed: done})
	},
}

func decodeTransferVAA(s string) ([]byte, *vaa.TransferPayload, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrMalformedVaa, err)
	}
	v, err := vaa.Unmarshal(raw)
	if err != nil {
		return nil, nil, err
	}
	p, err := vaa.DecodeTransferPayload(v.Payload)
	if err != nil {
		return nil, nil, err
	}
	return raw, p, nil
}

func init() {
	redeemPayer = redeemBuildCmd.Flags().String("payer", "", "Account paying for the redeem transaction")
	RedeemCmd.AddCommand(redeemBuildCmd)
	RedeemCmd.AddCommand(redeemStatusCmd)
}
