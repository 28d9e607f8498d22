package image

import (
	"strings"

	"codeberg.org/snonux/flashpix/internal/config"
)

// maxEffectiveResolution caps the configured minimum so that provider
// preview formats (around 640px) are not all rejected.
const maxEffectiveResolution = 300

var watermarkPatterns = []string{"getty", "shutterstock", "watermark", "stock"}

var biologyTerms = []string{
	"cell", "dna", "rna", "protein", "enzyme", "mitochondria", "nucleus",
	"membrane", "organism", "bacteria", "virus", "gene", "chromosome",
	"photosynthesis", "respiration", "metabolism", "evolution", "species",
	"anatomy", "physiology", "neuron", "brain", "heart", "lung", "kidney",
	"blood", "bone", "muscle", "tissue", "organ", "system",
}

// QualityFilter drops candidates that are too small or look watermarked
type QualityFilter struct {
	MinResolution   int
	DetectWatermark bool
}

// NewQualityFilter builds a filter from the configured quality settings
func NewQualityFilter(q config.ImageQuality) QualityFilter {
	return QualityFilter{
		MinResolution:   q.MinResolution,
		DetectWatermark: q.DetectWatermark,
	}
}

// Apply returns the candidates that pass the filter, preserving order
func (f QualityFilter) Apply(candidates []Candidate) []Candidate {
	minSide := f.MinResolution
	if minSide > maxEffectiveResolution {
		minSide = maxEffectiveResolution
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Width < minSide || c.Height < minSide {
			continue
		}
		if f.DetectWatermark && looksWatermarked(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func looksWatermarked(c Candidate) bool {
	u := strings.ToLower(c.URL)
	tags := strings.ToLower(c.Tags)
	for _, p := range watermarkPatterns {
		if strings.Contains(u, p) || strings.Contains(tags, p) {
			return true
		}
	}
	return false
}

// KeywordEnhancer rewrites a term for general purpose web image search,
// steering results toward educational photos
type KeywordEnhancer struct {
	Subjects  config.SubjectTags
	PreferCC0 bool
}

// Enhance returns term with subject hints and negative keywords appended
func (e KeywordEnhancer) Enhance(term string) string {
	var b strings.Builder
	b.WriteString(term)

	if e.Subjects.Biology && isBiologyTerm(term) {
		b.WriteString(" biology diagram anatomy cell")
	}
	if e.Subjects.English && isVocabularyTerm(term) {
		b.WriteString(" object real white background")
	}
	if e.Subjects.Exam {
		b.WriteString(" concept definition diagram")
	}
	if e.PreferCC0 {
		b.WriteString(" CC0")
	}
	b.WriteString(" -cartoon -art -abstract -drawing")

	return b.String()
}

func isBiologyTerm(term string) bool {
	lower := strings.ToLower(term)
	for _, t := range biologyTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func isVocabularyTerm(term string) bool {
	return len(strings.Split(term, " ")) <= 2 && len(term) < 20
}
