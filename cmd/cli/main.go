package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL string = "http://localhost:8787"
	output string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "boardctl",
	Short: "Affiliate board operations CLI",
	Long: `boardctl runs the affiliate board's maintenance jobs, either directly against
the database or through the running server's cron endpoints, and helps with
admin credentials.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if output != "text" && output != "json" {
			return fmt.Errorf("unknown output format %q (want text or json)", output)
		}
		return nil
	},
}

func init() {
	if env := os.Getenv("BOARD_API_URL"); env != "" {
		apiURL = env
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL (defaults to BOARD_API_URL)")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	// Add command groups
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(programsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
