package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pedro-hbl/fraudshield-stream/internal/config"
)

var (
	Version    = "dev"
	configPath string
)

func init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "fraudshield",
		Short:        "FraudShield - real-time transaction fraud monitor",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(invokeCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initCmd() *cobra.Command {
	var resolved bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "fraudshield.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if resolved {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := cfg.Save(path); err != nil {
					return err
				}
			} else if err := config.WriteDefault(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolved, "resolved", false, "write the effective config after file and environment overrides")
	return cmd
}
