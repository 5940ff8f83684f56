package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TanveerShahriar/Thesis/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "spread",
	Short: "spread - weighted function dispatcher",
	Long: `spread runs estimated functions on a fixed pool of workers, placing each
invocation on the least loaded worker by its estimated cost.`,
	SilenceUsage: true,
}

var (
	apiAddr    string
	configPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://"+config.DefaultListen, "API server address")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.spread/config.yaml)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(tuiCmd)
}

// loadConfig reads --config, or ~/.spread/config.yaml when unset.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	return config.LoadConfigFromHome()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
