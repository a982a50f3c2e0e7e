package connect

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

var VaaCmd = &cobra.Command{
	Use:   "vaa",
	Short: "Fetch and decode signed VAAs",
}

var (
	fetchChain    *string
	fetchTx       *string
	fetchEmitter  *string
	fetchSequence *uint64
	fetchParse    *bool
)

var vaaFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the signed VAA for a transaction, or for an emitter and sequence",
	Args:  cobra.NoArgs,
	RunE:  runVaaFetch,
}

var vaaDecodeCmd = &cobra.Command{
	Use:   "decode [HEX]...",
	Short: "Decode hex-encoded VAAs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			b, err := decodeHex(arg)
			if err != nil {
				return fmt.Errorf("%w: %w", common.ErrMalformedVaa, err)
			}
			v, err := vaa.Unmarshal(b)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), newVaaView(v, nil)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	fetchChain = vaaFetchCmd.Flags().String("chain", "", "Chain the message was emitted on")
	fetchTx = vaaFetchCmd.Flags().String("tx", "", "Hash of the transaction that emitted the message")
	fetchEmitter = vaaFetchCmd.Flags().String("emitter", "", "Emitter address, hex (alternative to --tx)")
	fetchSequence = vaaFetchCmd.Flags().Uint64("sequence", 0, "Message sequence (with --emitter)")
	fetchParse = vaaFetchCmd.Flags().Bool("parse", false, "Also parse the token transfer (requires --tx)")

	VaaCmd.AddCommand(vaaFetchCmd)
	VaaCmd.AddCommand(vaaDecodeCmd)
}

func runVaaFetch(cmd *cobra.Command, args []string) error {
	chain, err := parseChain(*fetchChain)
	if err != nil {
		return err
	}
	if (*fetchTx == "") == (*fetchEmitter == "") {
		return errors.New("exactly one of --tx or --emitter is required")
	}

	ctx := cmd.Context()
	rt, err := setup(ctx, cmd)
	if err != nil {
		return err
	}

	if *fetchEmitter != "" {
		if rt.retriever == nil {
			return fmt.Errorf("%w: guardian hosts", common.ErrNotConfigured)
		}
		emitter, err := vaa.StringToAddress(*fetchEmitter)
		if err != nil {
			return fmt.Errorf("invalid emitter: %w", err)
		}
		raw, err := rt.retriever.Retrieve(ctx, chain, emitter, *fetchSequence)
		if err != nil {
			return err
		}
		v, err := vaa.Unmarshal(raw)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), newVaaView(v, raw))
	}

	info, err := rt.registry.GetVaa(ctx, chain, *fetchTx)
	if err != nil {
		return err
	}
	out := struct {
		Vaa     *vaaView     `json:"vaa"`
		Message *messageView `json:"message,omitempty"`
	}{Vaa: newVaaView(info.Vaa, info.RawVaa)}

	if *fetchParse {
		c, err := rt.registry.Get(chain)
		if err != nil {
			return err
		}
		msg, err := c.ParseMessage(ctx, info)
		if err != nil {
			return err
		}
		out.Message = newMessageView(msg)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
