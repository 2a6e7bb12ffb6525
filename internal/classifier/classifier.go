// Package classifier assigns complaint text to one of the fixed issue
// categories. It is the integration point for the trained model artifact;
// the shipped implementation scores weighted keyword rules over the same
// label set, loaded from an embedded YAML table.
package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Keyword is one weighted term inside a category rule.
type Keyword struct {
	Term   string `yaml:"term"`
	Weight int    `yaml:"weight"`
}

// Rules is the full keyword table for the taxonomy.
type Rules struct {
	Fallback struct {
		Category   string  `yaml:"category"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"fallback"`
	Categories map[string][]Keyword `yaml:"categories"`
	CrashBoost map[string]int       `yaml:"crash_boost"`
	FireBoost  map[string]int       `yaml:"fire_boost"`
}

// Prediction is the classifier output for one complaint.
type Prediction struct {
	Category      string
	Confidence    float64
	Probabilities map[string]float64
	CleanedText   string
}

type Classifier struct {
	rules Rules
}

// New builds a classifier from the embedded default rules.
func New() (*Classifier, error) {
	return fromYAML(defaultRules)
}

// NewFromFile builds a classifier from a rule file on disk. An empty path
// falls back to the embedded rules.
func NewFromFile(path string) (*Classifier, error) {
	if path == "" {
		return New()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier rules: %w", err)
	}
	return fromYAML(raw)
}

func fromYAML(raw []byte) (*Classifier, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse classifier rules: %w", err)
	}
	if len(r.Categories) == 0 {
		return nil, fmt.Errorf("classifier rules define no categories")
	}
	if r.Fallback.Category == "" {
		return nil, fmt.Errorf("classifier rules define no fallback category")
	}
	return &Classifier{rules: r}, nil
}

// Categories returns the label set of the loaded rule table, sorted.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.rules.Categories))
	for cat := range c.rules.Categories {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Predict classifies one complaint. Crash/fire flags nudge the scores the
// same way the trained model consumed them as numeric features. Text with
// no keyword hits yields the fallback category and confidence.
func (c *Classifier) Predict(text string, crash, fire bool) Prediction {
	cleaned := CleanText(text)
	padded := " " + cleaned + " "

	scores := make(map[string]float64, len(c.rules.Categories))
	total := 0.0
	for cat, keywords := range c.rules.Categories {
		score := 0.0
		for _, kw := range keywords {
			score += float64(kw.Weight * countWord(padded, kw.Term))
		}
		if crash {
			if boost, ok := c.rules.CrashBoost[cat]; ok && score > 0 {
				score += float64(boost)
			}
		}
		if fire {
			if boost, ok := c.rules.FireBoost[cat]; ok && score > 0 {
				score += float64(boost)
			}
		}
		scores[cat] = score
		total += score
	}

	if total == 0 {
		return Prediction{
			Category:      c.rules.Fallback.Category,
			Confidence:    c.rules.Fallback.Confidence,
			Probabilities: map[string]float64{},
			CleanedText:   cleaned,
		}
	}

	probs := make(map[string]float64, len(scores))
	best, bestScore := "", -1.0
	for cat, score := range scores {
		probs[cat] = score / total
		if score > bestScore || (score == bestScore && cat < best) {
			best, bestScore = cat, score
		}
	}

	return Prediction{
		Category:      best,
		Confidence:    probs[best],
		Probabilities: probs,
		CleanedText:   cleaned,
	}
}

// countWord counts whole-word occurrences of term inside a space-padded,
// cleaned text. Multi-word terms match as a sequence.
func countWord(padded, term string) int {
	needle := " " + strings.TrimSpace(strings.ToLower(term)) + " "
	count := 0
	for i := 0; ; {
		j := strings.Index(padded[i:], needle)
		if j < 0 {
			return count
		}
		count++
		// overlap on the shared space between adjacent hits
		i += j + len(needle) - 1
	}
}
