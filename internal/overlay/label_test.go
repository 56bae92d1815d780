package overlay

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// newTestParser returns a parser with the default marker whose warnings are
// captured in the returned buffer.
func newTestParser(t *testing.T) (*Parser, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewParser("", logger), &buf
}

// TestParse_Shapes verifies every range shape of the overlay grammar,
// bracketed and bare, and case-insensitive marker matching.
func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		label string
		want  []model.StepRange
	}{
		{"fig3", []model.StepRange{model.Exact(3)}},
		{"fig[3]", []model.StepRange{model.Exact(3)}},
		{"arrows-FIG[2,3,5]", []model.StepRange{model.Exact(2), model.Exact(3), model.Exact(5)}},
		{"fig[2-5]", []model.StepRange{model.Bounded(2, 5)}},
		{"fig[-6]", []model.StepRange{model.OpenLower(6)}},
		{"fig[3-]", []model.StepRange{model.OpenUpper(3)}},
		{"fig[-3,4,5-6,8-]", []model.StepRange{
			model.OpenLower(3), model.Exact(4), model.Bounded(5, 6), model.OpenUpper(8),
		}},
		{"fig[ 1 , 2 ]", []model.StepRange{model.Exact(1), model.Exact(2)}},
		{"layer_fig3 text", []model.StepRange{model.Exact(3)}},
		{"layer_Fig2-4_old", []model.StepRange{model.Bounded(2, 4)}},
		{"fig[4", []model.StepRange{model.Exact(4)}},
		{"figure then fig2", []model.StepRange{model.Exact(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			p, _ := newTestParser(t)

			spec, err := p.Parse(tt.label)
			require.NoError(t, err)
			require.NotNil(t, spec)
			assert.Equal(t, tt.label, spec.Label)
			assert.Equal(t, tt.want, spec.Ranges)
			assert.Empty(t, spec.Skipped)
		})
	}
}

// TestParse_NoMarker checks that labels without the marker, or with the
// marker used as an ordinary word, are not step-controlled.
func TestParse_NoMarker(t *testing.T) {
	for _, label := range []string{"", "background", "figure", "config", "Figures and tables", "fig"} {
		t.Run(label, func(t *testing.T) {
			p, _ := newTestParser(t)

			spec, err := p.Parse(label)
			require.NoError(t, err)
			assert.Nil(t, spec)
		})
	}
}

// TestParse_MalformedLabel checks the fatal case: the marker is there but
// its payload holds no digit.
func TestParse_MalformedLabel(t *testing.T) {
	for _, label := range []string{"fig[]", "fig[abc]", "fig-", "arrows-fig[-]", "fig[,]"} {
		t.Run(label, func(t *testing.T) {
			p, _ := newTestParser(t)

			spec, err := p.Parse(label)
			require.Error(t, err)
			assert.Nil(t, spec)

			var labelErr *LabelError
			require.True(t, errors.As(err, &labelErr))
			assert.Equal(t, label, labelErr.Label)
			assert.Contains(t, err.Error(), label)
		})
	}
}

// TestParse_MalformedToken verifies that a bad token inside an otherwise
// valid payload is skipped with a warning and the rest still applies.
func TestParse_MalformedToken(t *testing.T) {
	p, logs := newTestParser(t)

	spec, err := p.Parse("fig[1,x-5,8]")
	require.NoError(t, err)
	require.NotNil(t, spec)

	assert.Equal(t, []model.StepRange{model.Exact(1), model.Exact(8)}, spec.Ranges)
	assert.Equal(t, []string{"x-5"}, spec.Skipped)
	assert.Contains(t, logs.String(), "skipping malformed overlay range")
	assert.Contains(t, logs.String(), "token=x-5")

	assert.True(t, IsVisible(spec, 1, 8))
	assert.True(t, IsVisible(spec, 8, 8))
	assert.False(t, IsVisible(spec, 5, 8))
}

// TestParse_SkippedTokens lists the other token shapes the tokenizer
// rejects.
func TestParse_SkippedTokens(t *testing.T) {
	tests := []struct {
		label   string
		skipped []string
	}{
		{"fig[1,,2]", []string{""}},
		{"fig[1,-,2]", []string{"-"}},
		{"fig[0,2]", []string{"0"}},
		{"fig[2-3-4,5]", []string{"2-3-4"}},
		{"fig[99999999999999999999999,1]", []string{"99999999999999999999999"}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			p, _ := newTestParser(t)

			spec, err := p.Parse(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.skipped, spec.Skipped)
			assert.NotEmpty(t, spec.Ranges)
		})
	}
}

// TestParse_AllTokensMalformed checks that a payload with digits but no
// valid token gives an empty specifier, not an error.
func TestParse_AllTokensMalformed(t *testing.T) {
	p, _ := newTestParser(t)

	spec, err := p.Parse("fig[x1,2y]")
	require.NoError(t, err)
	require.NotNil(t, spec)
	assert.True(t, spec.IsEmpty())
	assert.Equal(t, []string{"x1", "2y"}, spec.Skipped)
	assert.Equal(t, 0, ComputeMaxStep([]*model.StepSpecifier{spec}))
}

// TestParse_InvertedRange verifies that start > end is kept as a range that
// never matches and is reported as a warning.
func TestParse_InvertedRange(t *testing.T) {
	p, logs := newTestParser(t)

	spec, err := p.Parse("fig[5-2]")
	require.NoError(t, err)
	require.Equal(t, []model.StepRange{model.Bounded(5, 2)}, spec.Ranges)
	assert.Contains(t, logs.String(), "never matches")

	for step := 1; step <= 6; step++ {
		assert.False(t, IsVisible(spec, step, 6), "step %d", step)
	}
}

// TestParse_CustomMarker verifies that the marker token is configurable and
// matched case-insensitively.
func TestParse_CustomMarker(t *testing.T) {
	p := NewParser("Step", nil)
	assert.Equal(t, "step", p.Marker())

	spec, err := p.Parse("title-STEP[2-]")
	require.NoError(t, err)
	assert.Equal(t, []model.StepRange{model.OpenUpper(2)}, spec.Ranges)

	spec, err = p.Parse("title-fig2")
	require.NoError(t, err)
	assert.Nil(t, spec, "the default marker is not recognized once replaced")
}

// TestScanUnit exercises the tokenizer on its own.
func TestScanUnit(t *testing.T) {
	tests := []struct {
		text string
		want unitToken
		ok   bool
	}{
		{"12", unitToken{start: "12"}, true},
		{"3-", unitToken{start: "3", dash: true}, true},
		{"-6", unitToken{dash: true, end: "6"}, true},
		{"5-6", unitToken{start: "5", dash: true, end: "6"}, true},
		{"", unitToken{}, true},
		{"a", unitToken{}, false},
		{"1-2x", unitToken{start: "1", dash: true, end: "2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := scanUnit(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
