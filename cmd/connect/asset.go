package connect

import (
	"github.com/spf13/cobra"
)

var AssetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Token bridge asset lookups",
}

var (
	assetTokenChain *string
	assetToken      *string
	assetChain      *string
)

var assetForeignCmd = &cobra.Command{
	Use:   "foreign",
	Short: "Find the representation of a token on another chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := parseToken(*assetTokenChain, *assetToken)
		if err != nil {
			return err
		}
		dest, err := parseChain(*assetChain)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		asset, ok, err := rt.registry.GetForeignAsset(ctx, token, dest)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), struct {
			Token      string `json:"token"`
			Chain      string `json:"chain"`
			Registered bool   `json:"registered"`
			Asset      string `json:"asset,omitempty"`
		}{Token: token.String(), Chain: dest.String(), Registered: ok, Asset: asset})
	},
}

func init() {
	assetTokenChain = assetForeignCmd.Flags().String("token-chain", "", "Origin chain of the token")
	assetToken = assetForeignCmd.Flags().String("token", "", "Token address on its origin chain")
	assetChain = assetForeignCmd.Flags().String("chain", "", "Chain to look the token up on")
	AssetCmd.AddCommand(assetForeignCmd)
}
