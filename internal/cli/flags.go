package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile string
	Verbose bool

	// Input flags
	File string
	List bool

	// StdinUsed is set by ReadInput once the text came from stdin
	StdinUsed bool

	// Dialog flags
	UI  string
	Yes bool

	// Export flags
	Export string
	Out    string

	// Overrides bound to viper
	DeckName   string
	ModelName  string
	AnkiURL    string
	Candidates int
	MaxItems   int
}

// UI modes accepted by --ui
const (
	UITerminal = "tui"
	UIDesktop  = "gui"
	UIAuto     = "auto"
)

// Export formats accepted by --export
const (
	ExportAPKG = "apkg"
	ExportCSV  = "csv"
)

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		UI:         UITerminal,
		DeckName:   "flashpix",
		ModelName:  "Basic",
		AnkiURL:    "http://localhost:8765",
		Candidates: 9,
		MaxItems:   50,
	}
}

// Mode returns the effective UI mode. --yes always means auto.
func (f *Flags) Mode() string {
	if f.Yes {
		return UIAuto
	}
	return f.UI
}

// Exporting reports whether cards go to a file instead of AnkiConnect
func (f *Flags) Exporting() bool {
	return f.Export != ""
}
