package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/kitty3000/app"
	"github.com/kilianp07/kitty3000/config"
	"github.com/kilianp07/kitty3000/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "kitty3000",
	Short:        "Treat dispenser daemon controlled over MQTT",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// runDaemon serves the dispenser until SIGINT or SIGTERM, then marks it
// offline.
func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	log := logger.New("main")
	log.Infof("kitty3000 %s starting for device %s (%s)", cfg.Device.Version, cfg.Device.ID, cfgPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runErr := svc.Run(ctx)
	if ctx.Err() != nil {
		log.Infof("shutting down")
	}
	if err := svc.Close(); err != nil {
		log.Errorf("service close: %v", err)
	}
	return runErr
}
