package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/park285/pokeleague/internal/config"
	"github.com/park285/pokeleague/internal/obslog"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "battle-server",
	Short: "Live battle engine for the Pokémon league",
	Long:  `battle-server runs live turn-based battles between league teams over websockets and exposes a small HTTP API to the league app.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return obslog.InitFromEnv()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file applied before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}
