package connect

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certusone/wormhole/connect/pkg/connect"
)

var TransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Token bridge transfers",
}

var (
	transferFromChain  *string
	transferToChain    *string
	transferTokenChain *string
	transferToken      *string
	transferAmount     *string
	transferSender     *string
	transferRecipient  *string
	transferFee        *string
	transferPayload    *string
)

var transferBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the unsigned transaction(s) for a token bridge transfer",
	Args:  cobra.NoArgs,
	RunE:  runTransferBuild,
}

func init() {
	transferFromChain = transferBuildCmd.Flags().String("from-chain", "", "Chain to send from")
	transferToChain = transferBuildCmd.Flags().String("to-chain", "", "Chain to send to")
	transferTokenChain = transferBuildCmd.Flags().String("token-chain", "", "Origin chain of the token")
	transferToken = transferBuildCmd.Flags().String("token", nativeTokenName, "Token address on its origin chain, or native")
	transferAmount = transferBuildCmd.Flags().String("amount", "", "Amount in the token's smallest unit")
	transferSender = transferBuildCmd.Flags().String("sender", "", "Sending wallet")
	transferRecipient = transferBuildCmd.Flags().String("recipient", "", "Receiving wallet on the destination chain")
	transferFee = transferBuildCmd.Flags().String("fee", "", "Relayer fee (ignored with --payload)")
	transferPayload = transferBuildCmd.Flags().String("payload", "", "Hex payload for a transfer with payload")

	TransferCmd.AddCommand(transferBuildCmd)
}

func runTransferBuild(cmd *cobra.Command, args []string) error {
	from, err := parseChain(*transferFromChain)
	if err != nil {
		return fmt.Errorf("from chain: %w", err)
	}
	to, err := parseChain(*transferToChain)
	if err != nil {
		return fmt.Errorf("to chain: %w", err)
	}
	token, err := parseToken(*transferTokenChain, *transferToken)
	if err != nil {
		return err
	}
	amount, err := parseAmount(*transferAmount)
	if err != nil {
		return err
	}
	if amount == nil {
		return errors.New("--amount is required")
	}
	fee, err := parseAmount(*transferFee)
	if err != nil {
		return err
	}
	var payload []byte
	if *transferPayload != "" {
		if payload, err = decodeHex(*transferPayload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}

	ctx := cmd.Context()
	rt, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	c, err := rt.registry.Get(from)
	if err != nil {
		return err
	}

	tx, err := c.Send(ctx, connect.TransferRequest{
		Token:      token,
		Amount:     amount,
		FromChain:  from,
		Sender:     *transferSender,
		ToChain:    to,
		Recipient:  *transferRecipient,
		RelayerFee: fee,
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), tx)
}
