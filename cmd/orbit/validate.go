package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conversa-hq/orbit/pkg/config"
	"conversa-hq/orbit/pkg/lexicon"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file without starting the server.

Checks backend descriptors, selector role references, budget thresholds,
timeouts, the monitor rollup schedule, and the lexicon file when one is
configured.

Examples:
  # Validate the default config
  orbit validate

  # Validate a specific file
  orbit validate --config /etc/orbit/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("✓ Configuration valid (%d backends)\n", len(cfg.Backends))

	if cfg.Selector.LexiconPath != "" {
		lex, err := lexicon.Load(cfg.Selector.LexiconPath)
		if err != nil {
			return fmt.Errorf("lexicon invalid: %w", err)
		}
		fmt.Printf("✓ Lexicon valid (%d conversational, %d technical, %d emergency keywords)\n",
			len(lex.Conversational), len(lex.Technical), len(lex.Emergency))
	}

	return nil
}
