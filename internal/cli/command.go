package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/flashpix/internal"
	"codeberg.org/snonux/flashpix/internal/config"
)

// RunFunc is the body of a command
type RunFunc func(cmd *cobra.Command, args []string) error

// Handlers are the command bodies that need the full application. They
// are supplied by main so this package stays free of the processor.
type Handlers struct {
	Generate RunFunc
	List     RunFunc
	Check    RunFunc
	Models   RunFunc
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, h Handlers) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flashpix [text...]",
		Short: "Image illustrated Anki flashcard generator",
		Long: `flashpix turns text into Anki flashcards illustrated with images
from Pixabay, Bing or Unsplash.

Every line of the input becomes one card. For each line you pick an
image from the search results, review all picks and then the cards are
created through AnkiConnect or written to an .apkg or .csv file.

Examples:
  flashpix photosynthesis               # One card, pick an image in the terminal
  flashpix --file terms.txt             # One card per line
  pbpaste | flashpix -                  # Read the lines from stdin
  flashpix --file terms.txt --yes       # Always take the first image
  flashpix --ui gui --file terms.txt    # Pick images in a desktop window
  flashpix --file terms.txt --export apkg --out biology.apkg
  flashpix list --file notes.md         # Bulleted list, no questions asked`,
		Args:    cobra.ArbitraryArgs,
		Version: internal.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine
			_ = godotenv.Load()
			setupLogging(cmd.ErrOrStderr(), flags.Verbose)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFlags(flags)
		},
		RunE: h.Generate,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newListCommand(h.List),
		newCheckCommand(h.Check),
		newModelsCommand(h.Models),
		newKeywordsCommand(),
		newConfigCommand(),
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.flashpix.yaml)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Log diagnostics to stderr")
	pf.StringVarP(&flags.File, "file", "f", "", "Read the items from a file, one per line")
	pf.StringVar(&flags.DeckName, "deck", flags.DeckName, "Target Anki deck")
	pf.StringVar(&flags.ModelName, "model", flags.ModelName, "Anki note type")
	pf.StringVar(&flags.AnkiURL, "anki-url", flags.AnkiURL, "AnkiConnect endpoint")
	pf.IntVar(&flags.MaxItems, "max-items", flags.MaxItems, "Maximum number of items in one run")

	// Local flags
	cmd.Flags().BoolVar(&flags.List, "list", false, "Only use bulleted lines (- or *) of the input")
	cmd.Flags().StringVar(&flags.UI, "ui", flags.UI, "How images are picked: tui, gui or auto")
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "Take the first image for every item without asking (same as --ui auto)")
	cmd.Flags().StringVar(&flags.Export, "export", "", "Write an import file instead of using AnkiConnect: apkg or csv")
	cmd.Flags().StringVarP(&flags.Out, "out", "o", "", "Export file path (default is <deck>.apkg or <deck>.csv)")
	cmd.Flags().IntVar(&flags.Candidates, "candidates", flags.Candidates, "Images offered per item")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("anki.deck", cmd.PersistentFlags().Lookup("deck"))
	viper.BindPFlag("anki.model", cmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("anki.url", cmd.PersistentFlags().Lookup("anki-url"))
	viper.BindPFlag("batch.max_items", cmd.PersistentFlags().Lookup("max-items"))
	viper.BindPFlag("batch.candidates", cmd.Flags().Lookup("candidates"))
}

func validateFlags(flags *Flags) error {
	switch flags.UI {
	case UITerminal, UIDesktop, UIAuto:
	default:
		return fmt.Errorf("unknown --ui %q, use tui, gui or auto", flags.UI)
	}
	switch flags.Export {
	case "", ExportAPKG, ExportCSV:
	default:
		return fmt.Errorf("unknown --export %q, use apkg or csv", flags.Export)
	}
	if flags.Out != "" && flags.Export == "" {
		return fmt.Errorf("--out needs --export")
	}
	return nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".flashpix" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".flashpix")
	}

	// Environment variables
	viper.SetEnvPrefix("FLASHPIX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("Using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file: %v\n", err)
	}
}

// LoadSettings returns the validated settings from the global viper instance
func LoadSettings() (config.Settings, error) {
	s := config.Load(viper.GetViper())
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// ReadInput returns the text to process. --file wins over arguments, a
// single "-" argument reads stdin and other arguments are joined with
// spaces. No input at all yields an empty string.
func ReadInput(flags *Flags, args []string, stdin io.Reader) (string, error) {
	switch {
	case flags.File != "":
		data, err := os.ReadFile(flags.File)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		flags.StdinUsed = true
		return string(data), nil
	default:
		return strings.Join(args, " "), nil
	}
}
