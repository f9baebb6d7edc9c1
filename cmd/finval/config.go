package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/finval/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify finval configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/finval/config.yaml
Project-specific overrides can be placed in .finval.yaml`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			displayAllConfig(out, cfg)
		case 1:
			err = displayConfigKey(out, cfg, args[0])
		default:
			err = setConfigKey(out, cfg, args[0], args[1], config.Save)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// displayAllConfig prints all configuration values with secrets masked.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range config.Keys() {
		val, _ := cfg.Get(key)
		fmt.Fprintf(w, "%s: %s\n", key, formatConfigValue(key, val))
	}
	fmt.Fprintf(w, "validation.agents: %s\n", strings.Join(cfg.Validation.Agents, ","))
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(w io.Writer, cfg *config.Config, key string) error {
	key = strings.ToLower(key)
	val, ok := cfg.Get(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	fmt.Fprintln(w, formatConfigValue(key, val))
	return nil
}

// setConfigKey sets a configuration value, validates the result and saves it.
func setConfigKey(w io.Writer, cfg *config.Config, key, value string, save func(*config.Config) error) error {
	key = strings.ToLower(key)
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	shown := value
	if config.IsSecret(key) {
		shown = formatConfigValue(key, value)
	}
	fmt.Fprintf(w, "Set %s = %s\n", key, shown)
	return nil
}

// formatConfigValue renders val for display, masking secrets.
func formatConfigValue(key string, val any) string {
	if config.IsSecret(key) {
		s, _ := val.(string)
		switch {
		case s == "":
			return "(not set)"
		case key == "anthropic.api_key":
			return config.MaskAPIKey(s)
		default:
			return "****"
		}
	}
	switch v := val.(type) {
	case string:
		if v == "" {
			return "(not set)"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
