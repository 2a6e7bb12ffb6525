package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and punctuation", "The BRAKES failed!", "the brakes failed"},
		{"numbers become NUM", "at 120 km/h", "at NUM kmh"},
		{"html entities and br tags", "hood &amp; trunk<br/>rusted", "hood trunk rusted"},
		{"whitespace collapsed", "  engine   stalls \n twice ", "engine stalls twice"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestPredict_KeywordMatch(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	tests := []struct {
		text string
		want string
	}{
		{"The brake pedal went to the floor and the ABS light is on", "brakes_safety"},
		{"My tire keeps losing air, I think the rim is cracked", "wheels_tires"},
		{"Transmission is slipping when shifting into third gear", "power_train"},
		{"Airbag warning light stays on and the seat belt won't latch", "airbags_seatbelts"},
		{"Engine stalls at idle and there's a knocking sound", "engine"},
	}
	for _, tt := range tests {
		p := c.Predict(tt.text, false, false)
		assert.Equal(t, tt.want, p.Category, "text: %s", tt.text)
		assert.Greater(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}

func TestPredict_FallbackOnNoKeywords(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	p := c.Predict("something vague happened yesterday", false, false)
	assert.Equal(t, "engine", p.Category)
	assert.Equal(t, 0.5, p.Confidence)
	assert.Empty(t, p.Probabilities)
}

func TestPredict_FireBoostsFuelSystem(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// "fuel" and "engine" both score; the fire flag should tip the
	// balance toward the fuel system.
	base := c.Predict("fuel smell near the engine engine", false, false)
	flagged := c.Predict("fuel smell near the engine engine", false, true)
	assert.GreaterOrEqual(t,
		flagged.Probabilities["fuel_system"],
		base.Probabilities["fuel_system"],
	)
}

func TestPredict_WholeWordMatching(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// "absorber" must not count as an "abs" hit
	p := c.Predict("the shock absorber is worn and the strut leaks", false, false)
	assert.Equal(t, "steering_suspension", p.Category)
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fallback:
  category: misc
  confidence: 0.25
categories:
  misc:
    - {term: "thing", weight: 1}
`), 0o644))

	c, err := NewFromFile(path)
	require.NoError(t, err)

	p := c.Predict("no matches here", false, false)
	assert.Equal(t, "misc", p.Category)
	assert.Equal(t, 0.25, p.Confidence)

	_, err = NewFromFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestNewFromFile_EmptyPathUsesEmbedded(t *testing.T) {
	c, err := NewFromFile("")
	require.NoError(t, err)
	assert.Contains(t, c.Categories(), "brakes_safety")
	assert.Len(t, c.Categories(), 11)
}
