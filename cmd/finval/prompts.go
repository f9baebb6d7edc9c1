package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/finval/internal/config"
	"github.com/ShayCichocki/finval/internal/extract"
	"github.com/ShayCichocki/finval/internal/validation"
	"github.com/ShayCichocki/finval/pkg/models"
)

// documentPlaceholder stands in for the document when none is given.
const documentPlaceholder = "<document text>"

var (
	promptsAgents   []string
	promptsDocument string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Print the prompts each agent sends",
	Long: `Print the meta prompt and the domain prompt for each agent.

With --document the domain prompts include the extracted document text.
No model calls are made.`,
	RunE: runPrompts,
}

func init() {
	promptsCmd.Flags().StringSliceVar(&promptsAgents, "agents", nil, "Agents to show (default: all configured agents)")
	promptsCmd.Flags().StringVar(&promptsDocument, "document", "", "Document to embed in the domain prompts")
}

func runPrompts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	kinds, err := selectAgents(cfg, promptsAgents)
	if err != nil {
		return err
	}

	text := documentPlaceholder
	if promptsDocument != "" {
		text, err = extract.File(extract.FileExtractor{}, promptsDocument)
		if err != nil {
			return err
		}
	}
	return writePrompts(cmd.OutOrStdout(), kinds, text, cfg.Validation.MetaSystemPrompt)
}

// writePrompts renders the prompts of each agent in canonical order.
func writePrompts(w io.Writer, kinds []models.AgentKind, documentText string, sendMeta bool) error {
	heading := color.New(color.FgCyan, color.Bold)
	sub := color.New(color.Bold)

	for _, kind := range models.CanonicalKinds(kinds) {
		profile, err := validation.DefaultProfile(kind)
		if err != nil {
			return err
		}
		agent := validation.NewAgent(profile, nil, validation.WithMetaSystemPrompt(sendMeta))

		heading.Fprintf(w, "=== %s ===\n", profile.Label)
		sub.Fprintln(w, "Meta prompt")
		fmt.Fprintln(w, agent.MetaPrompt())
		fmt.Fprintln(w)
		sub.Fprintln(w, "Domain prompt")
		fmt.Fprintln(w, agent.DomainPrompt(documentText))
		if profile.Reflect {
			fmt.Fprintln(w)
			sub.Fprintln(w, "Followed by a self-reflection pass over the first analysis.")
		}
		fmt.Fprintln(w)
	}
	return nil
}
