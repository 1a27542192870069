package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath string
	verbose bool
)

const version = "0.3.0"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "contextos",
	Short: "contextOS - ambient signal-to-session orchestration engine",
	Long: `contextOS watches activity signals (clipboard text, dropped files),
derives the user's intent with an LLM, resolves it with a ReAct tool
loop, and surfaces the result as either a notification or an
interactive review session.

Run "contextos serve" to start the engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the contextos version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("contextos %s\n", version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "contextos.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
