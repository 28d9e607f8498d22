// Package config holds the immutable settings every flashpix component reads.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/viper"
)

// SubjectTags toggles subject specific search enhancement.
type SubjectTags struct {
	Biology bool `yaml:"biology"`
	English bool `yaml:"english"`
	Exam    bool `yaml:"exam"`
}

// ImageQuality configures which candidates survive filtering.
type ImageQuality struct {
	MinResolution   int  `yaml:"min_resolution"`
	PreferCC0       bool `yaml:"prefer_cc0"`
	DetectWatermark bool `yaml:"detect_watermark"`
}

// Settings is the complete configuration. Values are copied, never shared,
// so a running batch keeps whatever it was started with.
type Settings struct {
	PixabayKey  string `yaml:"pixabay_key"`
	BingKey     string `yaml:"bing_key"`
	UnsplashKey string `yaml:"unsplash_key"`

	AnkiConnectURL string   `yaml:"anki_url"`
	DeckName       string   `yaml:"deck"`
	ModelName      string   `yaml:"model"`
	FrontField     string   `yaml:"front_field"`
	BackField      string   `yaml:"back_field"`
	ImageField     string   `yaml:"image_field"`
	Tags           []string `yaml:"tags"`

	Subjects SubjectTags  `yaml:"subjects"`
	Quality  ImageQuality `yaml:"quality"`

	MaxBatchItems  int           `yaml:"max_items"`
	CandidateCount int           `yaml:"candidates"`
	CommitDelay    time.Duration `yaml:"commit_delay"`

	SuggestProvider string `yaml:"suggest_provider"`
	SuggestModel    string `yaml:"suggest_model"`
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		AnkiConnectURL: "http://localhost:8765",
		DeckName:       "flashpix",
		ModelName:      "Basic",
		FrontField:     "Front",
		BackField:      "Back",
		ImageField:     "Image",
		Tags:           []string{"flashpix", "auto-generated"},
		Subjects: SubjectTags{
			Biology: true,
			English: true,
			Exam:    true,
		},
		Quality: ImageQuality{
			MinResolution:   600,
			PreferCC0:       true,
			DetectWatermark: true,
		},
		MaxBatchItems:  50,
		CandidateCount: 9,
		CommitDelay:    100 * time.Millisecond,
	}
}

// SetDefaults registers the defaults with v so that config files and
// environment variables only need to override what differs.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("anki.url", d.AnkiConnectURL)
	v.SetDefault("anki.deck", d.DeckName)
	v.SetDefault("anki.model", d.ModelName)
	v.SetDefault("anki.front_field", d.FrontField)
	v.SetDefault("anki.back_field", d.BackField)
	v.SetDefault("anki.image_field", d.ImageField)
	v.SetDefault("anki.tags", d.Tags)
	v.SetDefault("subjects.biology", d.Subjects.Biology)
	v.SetDefault("subjects.english", d.Subjects.English)
	v.SetDefault("subjects.exam", d.Subjects.Exam)
	v.SetDefault("quality.min_resolution", d.Quality.MinResolution)
	v.SetDefault("quality.prefer_cc0", d.Quality.PreferCC0)
	v.SetDefault("quality.detect_watermark", d.Quality.DetectWatermark)
	v.SetDefault("batch.max_items", d.MaxBatchItems)
	v.SetDefault("batch.candidates", d.CandidateCount)
	v.SetDefault("batch.commit_delay", d.CommitDelay)
}

// Load builds Settings from v on top of Default. Well known API key
// environment variables win over config file values.
func Load(v *viper.Viper) Settings {
	SetDefaults(v)

	s := Default()
	s.PixabayKey = firstNonEmpty(os.Getenv("PIXABAY_API_KEY"), v.GetString("image.pixabay_key"))
	s.BingKey = firstNonEmpty(os.Getenv("BING_API_KEY"), v.GetString("image.bing_key"))
	s.UnsplashKey = firstNonEmpty(os.Getenv("UNSPLASH_ACCESS_KEY"), v.GetString("image.unsplash_key"))

	s.AnkiConnectURL = v.GetString("anki.url")
	s.DeckName = v.GetString("anki.deck")
	s.ModelName = v.GetString("anki.model")
	s.FrontField = v.GetString("anki.front_field")
	s.BackField = v.GetString("anki.back_field")
	s.ImageField = v.GetString("anki.image_field")
	s.Tags = v.GetStringSlice("anki.tags")

	s.Subjects = SubjectTags{
		Biology: v.GetBool("subjects.biology"),
		English: v.GetBool("subjects.english"),
		Exam:    v.GetBool("subjects.exam"),
	}
	s.Quality = ImageQuality{
		MinResolution:   v.GetInt("quality.min_resolution"),
		PreferCC0:       v.GetBool("quality.prefer_cc0"),
		DetectWatermark: v.GetBool("quality.detect_watermark"),
	}

	s.MaxBatchItems = v.GetInt("batch.max_items")
	s.CandidateCount = v.GetInt("batch.candidates")
	s.CommitDelay = v.GetDuration("batch.commit_delay")

	s.SuggestProvider = v.GetString("suggest.provider")
	s.SuggestModel = v.GetString("suggest.model")
	s.OpenAIKey = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), v.GetString("suggest.openai_key"))
	s.GeminiKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), v.GetString("suggest.gemini_key"))

	return s
}

// Validate reports the first setting that would make a run impossible.
func (s Settings) Validate() error {
	if s.DeckName == "" {
		return errors.New("deck name must not be empty")
	}
	if s.ModelName == "" {
		return errors.New("note type must not be empty")
	}
	if s.FrontField == "" || s.BackField == "" {
		return errors.New("front and back field names must not be empty")
	}
	// Providers with a page floor pad small requests themselves
	if s.CandidateCount < 1 {
		return fmt.Errorf("candidates must be at least 1, got %d", s.CandidateCount)
	}
	if s.MaxBatchItems < 1 {
		return fmt.Errorf("max items must be at least 1, got %d", s.MaxBatchItems)
	}
	if s.CommitDelay < 0 {
		return fmt.Errorf("commit delay must not be negative, got %s", s.CommitDelay)
	}
	u, err := url.Parse(s.AnkiConnectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid AnkiConnect URL %q", s.AnkiConnectURL)
	}
	switch s.SuggestProvider {
	case "", "heuristic", "openai", "gemini":
	default:
		return fmt.Errorf("unknown suggest provider %q", s.SuggestProvider)
	}
	return nil
}

// WithDeck returns a copy targeting another deck.
func (s Settings) WithDeck(name string) Settings {
	s.DeckName = name
	return s
}

// WithTags returns a copy with its own tag slice.
func (s Settings) WithTags(tags ...string) Settings {
	s.Tags = append([]string(nil), tags...)
	return s
}

// WithCommitDelay returns a copy with a different pause between store calls.
func (s Settings) WithCommitDelay(d time.Duration) Settings {
	s.CommitDelay = d
	return s
}

// Masked returns a copy safe for printing.
func (s Settings) Masked() Settings {
	s.PixabayKey = mask(s.PixabayKey)
	s.BingKey = mask(s.BingKey)
	s.UnsplashKey = mask(s.UnsplashKey)
	s.OpenAIKey = mask(s.OpenAIKey)
	s.GeminiKey = mask(s.GeminiKey)
	s.Tags = append([]string(nil), s.Tags...)
	return s
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
