package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wognsths/MarketSage/pkg/a2a"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Resolve and print the cards of the configured remote agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		addresses := viper.GetStringSlice("agents.addresses")

		if len(addresses) == 0 {
			return fmt.Errorf("no agent addresses configured")
		}

		for _, address := range addresses {
			card, err := a2a.NewCardResolver(address).GetAgentCard(cmd.Context())

			if err != nil {
				log.Error("failed to resolve agent", "address", address, "error", err)
				continue
			}

			fmt.Println(card.String())
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
