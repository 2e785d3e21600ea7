package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/kitty3000/config"
	"github.com/kilianp07/kitty3000/core/model"
	"github.com/kilianp07/kitty3000/infra/mqtt"
)

var commandTimeout time.Duration

var commandCmd = &cobra.Command{
	Use:       "command <dispense|adjust|set_treat_count>",
	Short:     "Send a command to the configured dispenser",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(model.CommandDispense), string(model.CommandAdjust), string(model.CommandSetTreatCount)},
	RunE:      runCommand,
}

func init() {
	commandCmd.Flags().DurationVar(&commandTimeout, "timeout", 5*time.Second, "connection timeout")
	rootCmd.AddCommand(commandCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	c := model.ParseCommand([]byte(args[0]))
	if !c.Known() {
		return fmt.Errorf("unknown command %q", args[0])
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mqttCfg := cfg.MQTT
	// A second client with the daemon's id would kick it off the broker.
	mqttCfg.ClientID = fmt.Sprintf("kitty3000-cli-%d", time.Now().UnixNano())
	mqttCfg.ConnectRetry = false
	client, err := mqtt.NewPahoClient(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	topic := cfg.Device.Topics().Command
	if err := client.Publish(topic, []byte(c), false); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", c, topic)
	return err
}
