package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

func mustParse(t *testing.T, label string) *model.StepSpecifier {
	t.Helper()

	spec, err := NewParser("", nil).Parse(label)
	require.NoError(t, err)
	return spec
}

// visibleSteps returns the steps in 1..maxStep where spec is visible.
func visibleSteps(spec *model.StepSpecifier, maxStep int) []int {
	var steps []int
	for s := 1; s <= maxStep; s++ {
		if IsVisible(spec, s, maxStep) {
			steps = append(steps, s)
		}
	}
	return steps
}

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		maxStep int
		want    []int
	}{
		{"exact", "fig3", 5, []int{3}},
		{"list", "fig[2,3,5]", 6, []int{2, 3, 5}},
		{"bounded", "fig[2-5]", 7, []int{2, 3, 4, 5}},
		{"open lower", "fig[-6]", 8, []int{1, 2, 3, 4, 5, 6}},
		{"open upper", "fig[3-]", 8, []int{3, 4, 5, 6, 7, 8}},
		{"mixed", "fig[-3,4,5-6,8-]", 9, []int{1, 2, 3, 4, 5, 6, 8, 9}},
		{"duplicates", "fig[2,2,1-2]", 3, []int{1, 2}},
		{"open upper past max", "fig[5-]", 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := mustParse(t, tt.label)
			assert.Equal(t, tt.want, visibleSteps(spec, tt.maxStep))
		})
	}
}

// TestIsVisible_Unmarked checks that layers without a usable specifier
// report visible in every step.
func TestIsVisible_Unmarked(t *testing.T) {
	assert.True(t, IsVisible(nil, 1, 3))
	assert.True(t, IsVisible(&model.StepSpecifier{Label: "fig[x]"}, 2, 3))
}

func TestComputeMaxStep(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   int
	}{
		{"exact", []string{"fig3"}, 3},
		{"bounded end", []string{"fig[2-5]", "fig1"}, 5},
		{"open lower end", []string{"fig[-6]", "fig[2-3]"}, 6},
		{"open upper ignored", []string{"fig[3-]", "fig2"}, 2},
		{"open upper only", []string{"fig[3-]", "fig[5-]"}, 0},
		{"mixed", []string{"fig[-3,4,5-6,8-]", "fig9"}, 9},
		{"inverted counts its end", []string{"fig[5-2]"}, 2},
		{"no markers", []string{"background", "title"}, 0},
		{"none", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := make([]*model.StepSpecifier, 0, len(tt.labels))
			for _, l := range tt.labels {
				specs = append(specs, mustParse(t, l))
			}
			assert.Equal(t, tt.want, ComputeMaxStep(specs))
		})
	}
}

func TestOnlyOpenUpper(t *testing.T) {
	assert.True(t, onlyOpenUpper(mustParse(t, "fig[3-,5-]")))
	assert.False(t, onlyOpenUpper(mustParse(t, "fig[3-,5]")))
	assert.False(t, onlyOpenUpper(nil))
}
