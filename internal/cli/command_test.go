package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func noop(cmd *cobra.Command, args []string) error { return nil }

func testHandlers() Handlers {
	return Handlers{Generate: noop, List: noop, Check: noop, Models: noop}
}

func TestCreateRootCommand(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	flags := NewFlags()
	cmd := CreateRootCommand(flags, testHandlers())

	// Test basic command properties
	if cmd.Use != "flashpix [text...]" {
		t.Errorf("Expected Use to be 'flashpix [text...]', got %s", cmd.Use)
	}

	if !strings.Contains(cmd.Short, "flashcard generator") {
		t.Errorf("Expected Short description to mention the flashcard generator, got %q", cmd.Short)
	}

	persistent := []string{"config", "verbose", "file", "deck", "model", "anki-url", "max-items"}
	for _, name := range persistent {
		t.Run("persistent_flag_"+name, func(t *testing.T) {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("Expected persistent flag %s to exist", name)
			}
		})
	}

	local := []string{"list", "ui", "yes", "export", "out", "candidates"}
	for _, name := range local {
		t.Run("flag_"+name, func(t *testing.T) {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("Expected flag %s to exist", name)
			}
		})
	}

	subcommands := map[string]bool{}
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}
	for _, name := range []string{"list", "check", "models", "keywords", "config"} {
		if !subcommands[name] {
			t.Errorf("Expected subcommand %s", name)
		}
	}
}

func TestSetupFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{}
	flags := NewFlags()

	setupFlags(cmd, flags)

	defaults := []struct {
		name       string
		persistent bool
		want       string
	}{
		{"deck", true, "flashpix"},
		{"model", true, "Basic"},
		{"anki-url", true, "http://localhost:8765"},
		{"max-items", true, "50"},
		{"ui", false, "tui"},
		{"candidates", false, "9"},
		{"yes", false, "false"},
	}

	for _, tt := range defaults {
		t.Run(tt.name, func(t *testing.T) {
			var flag *pflag.Flag
			if tt.persistent {
				flag = cmd.PersistentFlags().Lookup(tt.name)
			} else {
				flag = cmd.Flags().Lookup(tt.name)
			}
			if flag == nil {
				t.Fatalf("flag %s not found", tt.name)
			}
			if flag.DefValue != tt.want {
				t.Errorf("Expected default of %s to be %s, got %s", tt.name, tt.want, flag.DefValue)
			}
		})
	}

	if f := cmd.PersistentFlags().ShorthandLookup("v"); f == nil || f.Name != "verbose" {
		t.Errorf("Expected -v to be the shorthand of --verbose")
	}
	if f := cmd.Flags().ShorthandLookup("o"); f == nil || f.Name != "out" {
		t.Errorf("Expected -o to be the shorthand of --out")
	}
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		wantErr bool
	}{
		{"defaults", *NewFlags(), false},
		{"gui", Flags{UI: "gui"}, false},
		{"unknown ui", Flags{UI: "web"}, true},
		{"apkg export", Flags{UI: "tui", Export: "apkg", Out: "x.apkg"}, false},
		{"unknown export", Flags{UI: "tui", Export: "txt"}, true},
		{"out without export", Flags{UI: "tui", Out: "x.apkg"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := tt.flags
			err := validateFlags(&flags)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBindFlagsToViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{}
	flags := NewFlags()
	setupFlags(cmd, flags)

	// Set some flag values
	cmd.PersistentFlags().Set("deck", "Biology")
	cmd.PersistentFlags().Set("anki-url", "http://127.0.0.1:9999")
	cmd.Flags().Set("candidates", "4")

	if viper.GetString("anki.deck") != "Biology" {
		t.Errorf("Expected anki.deck to be Biology, got %s", viper.GetString("anki.deck"))
	}
	if viper.GetString("anki.url") != "http://127.0.0.1:9999" {
		t.Errorf("Expected anki.url to be http://127.0.0.1:9999, got %s", viper.GetString("anki.url"))
	}
	if viper.GetInt("batch.candidates") != 4 {
		t.Errorf("Expected batch.candidates to be 4, got %d", viper.GetInt("batch.candidates"))
	}

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.DeckName != "Biology" || settings.CandidateCount != 4 {
		t.Errorf("LoadSettings() = deck %q candidates %d", settings.DeckName, settings.CandidateCount)
	}
}

func TestInitConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "flashpix.yaml")
	content := `anki:
  deck: Chemistry
  tags: [chem, flashpix]
batch:
  commit_delay: 250ms
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	InitConfig(cfgPath)

	// Test environment variable prefix
	t.Setenv("FLASHPIX_ANKI_MODEL", "Basic (and reversed card)")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.DeckName != "Chemistry" {
		t.Errorf("DeckName = %q, want Chemistry", settings.DeckName)
	}
	if settings.ModelName != "Basic (and reversed card)" {
		t.Errorf("ModelName = %q, want value from FLASHPIX_ANKI_MODEL", settings.ModelName)
	}
	if got := strings.Join(settings.Tags, ","); got != "chem,flashpix" {
		t.Errorf("Tags = %q, want chem,flashpix", got)
	}
	if settings.CommitDelay.String() != "250ms" {
		t.Errorf("CommitDelay = %s, want 250ms", settings.CommitDelay)
	}
}

func TestReadInput(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "items.txt")
	if err := os.WriteFile(path, []byte("cell\nnucleus\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		flags   Flags
		args    []string
		stdin   string
		want    string
		wantErr bool
		fromStd bool
	}{
		{"args joined", Flags{}, []string{"cell", "membrane"}, "", "cell membrane", false, false},
		{"stdin", Flags{}, []string{"-"}, "a\nb\n", "a\nb\n", false, true},
		{"file wins", Flags{File: path}, []string{"ignored"}, "", "cell\nnucleus\n", false, false},
		{"missing file", Flags{File: filepath.Join(tmpDir, "nope")}, nil, "", "", true, false},
		{"nothing", Flags{}, nil, "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := tt.flags
			got, err := ReadInput(&flags, tt.args, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ReadInput() = %q, want %q", got, tt.want)
			}
			if flags.StdinUsed != tt.fromStd {
				t.Errorf("StdinUsed = %v, want %v", flags.StdinUsed, tt.fromStd)
			}
		})
	}
}

func TestKeywordsCommand(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := CreateRootCommand(NewFlags(), testHandlers())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"keywords", "Mitochondria"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"Normalized: Mitochondria", "Search term: mitochondria", "1. mitochondria"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q does not contain %q", out.String(), want)
		}
	}
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Setenv("PIXABAY_API_KEY", "abcdefghijkl")

	cmd := CreateRootCommand(NewFlags(), testHandlers())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := out.String()
	if strings.Contains(got, "abcdefghijkl") {
		t.Errorf("config output leaks the Pixabay key: %s", got)
	}
	if !strings.Contains(got, "pixabay_key: abcd****") {
		t.Errorf("config output missing masked key: %s", got)
	}
	if !strings.Contains(got, "deck: flashpix") {
		t.Errorf("config output missing deck: %s", got)
	}
}

func TestRootCommandRejectsUnknownUI(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	called := false
	h := testHandlers()
	h.Generate = func(cmd *cobra.Command, args []string) error {
		called = true
		return nil
	}
	cmd := CreateRootCommand(NewFlags(), h)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--ui", "web", "cell"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for --ui web")
	}
	if called {
		t.Error("Generate ran despite invalid flags")
	}
}
