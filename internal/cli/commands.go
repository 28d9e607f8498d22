package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"codeberg.org/snonux/flashpix/internal/keywords"
)

func newListCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list [text...]",
		Short: "Create one card per bulleted line without asking",
		Long: `list reads a bulleted list (lines starting with - or *) and creates
one card per entry. The first image found for the entry's first keyword
is used; entries without keywords or images are left out.`,
		RunE: run,
	}
}

func newCheckCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test the connection to AnkiConnect",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func newModelsCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List Anki note types and their fields",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func newKeywordsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords text...",
		Short: "Show the keywords extracted from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Normalized: %s\n", keywords.Normalize(text))
			terms := keywords.Extract(text)
			if len(terms) == 0 {
				fmt.Fprintln(out, "No keywords could be extracted")
				return nil
			}
			fmt.Fprintf(out, "Search term: %s\n", terms[0])
			fmt.Fprintln(out, "Keywords:")
			for i, term := range terms {
				fmt.Fprintf(out, "  %d. %s\n", i+1, term)
			}
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := LoadSettings()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			data, err := yaml.Marshal(settings.Masked())
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
