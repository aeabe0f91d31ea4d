package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yumovie/backend/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "moviectl",
	Short:         "Operator tasks for the movie tracker backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
	},
}

func init() {
	rootCmd.AddCommand(newMakeAdminCmd(openAdmin))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
