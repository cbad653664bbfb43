package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pestadvisor.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pestadvisor",
		Short: "Identify insects from photos and write pest control reports",
		Long: `pestadvisor identifies the insect in a photo and writes a pest control
report for your location.

Each report is built in three steps:
1. A multimodal model identifies the insect and rates its risk.
2. A research model runs one web search for localized control methods.
3. A report model combines both into a markdown guide with organic
   remedies, chemical options, safety precautions and resource links.

A language model API key and a SerpAPI key are required. Provide them
with flags, the PESTADVISOR_MODEL_API_KEY and PESTADVISOR_SEARCH_API_KEY
environment variables, or the credentials section of the config file
(see 'pestadvisor init').`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
