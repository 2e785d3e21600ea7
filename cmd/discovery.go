package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/kitty3000/config"
	"github.com/kilianp07/kitty3000/core/discovery"
	"github.com/kilianp07/kitty3000/infra/homeassistant"
)

var discoveryName string

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Print the Home Assistant discovery documents",
	Args:  cobra.NoArgs,
	RunE:  runDiscovery,
}

func init() {
	discoveryCmd.Flags().StringVar(&discoveryName, "name", "Kitty3000", "device name as sent in the remote configuration")
	rootCmd.AddCommand(discoveryCmd)
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	topics := cfg.Device.Topics()
	docs := homeassistant.Documents(cfg.Discovery, discovery.Device{
		ID:                cfg.Device.ID,
		Name:              discoveryName,
		Capacity:          cfg.Device.Capacity,
		Version:           cfg.Device.Version,
		AvailabilityTopic: topics.Availability,
		CommandTopic:      topics.Command,
		TreatsTopic:       topics.Treats,
	})
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
