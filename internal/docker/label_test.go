package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildLabels verifies that BuildLabels converts a Job into a Docker
// label map with every key set.
func TestBuildLabels(t *testing.T) {
	createdAt := time.Date(2026, 10, 16, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	job := Job{
		Input:     "/work/slides-fig2.svg",
		Output:    "/out/slides-fig2.pdf",
		Step:      2,
		CreatedAt: createdAt,
	}

	labels := BuildLabels(job)

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy],
		"managed-by label should always be set to the constant value")
	assert.Equal(t, "/work/slides-fig2.svg", labels[LabelInput])
	assert.Equal(t, "/out/slides-fig2.pdf", labels[LabelOutput])
	assert.Equal(t, "2", labels[LabelStep])
	assert.Equal(t, "2026-10-16T07:30:00Z", labels[LabelCreatedAt], "timestamps are stored in UTC")
	assert.Len(t, labels, 5)
}

// TestBuildAndParseLabelRoundTrip checks that a Job survives a trip through
// container labels.
func TestBuildAndParseLabelRoundTrip(t *testing.T) {
	job := Job{
		Input:     "/tmp/a b/drawing.svg",
		Output:    "/tmp/a b/drawing.pdf",
		Step:      0,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	parsed, err := ParseLabels(BuildLabels(job))
	require.NoError(t, err)
	assert.Equal(t, job, *parsed)
}

// TestParseLabels_Invalid covers the label sets ParseLabels rejects.
func TestParseLabels_Invalid(t *testing.T) {
	valid := func() map[string]string {
		return BuildLabels(Job{Input: "in.svg", Output: "out.pdf", Step: 1, CreatedAt: time.Now()})
	}

	tests := []struct {
		name   string
		mutate func(map[string]string)
		errMsg string
	}{
		{"not managed", func(l map[string]string) { l[LabelManagedBy] = "someone-else" }, "not managed"},
		{"missing managed-by", func(l map[string]string) { delete(l, LabelManagedBy) }, "not managed"},
		{"missing input", func(l map[string]string) { delete(l, LabelInput) }, LabelInput},
		{"missing output", func(l map[string]string) { delete(l, LabelOutput) }, LabelOutput},
		{"missing step", func(l map[string]string) { delete(l, LabelStep) }, LabelStep},
		{"step not a number", func(l map[string]string) { l[LabelStep] = "two" }, LabelStep},
		{"negative step", func(l map[string]string) { l[LabelStep] = "-1" }, LabelStep},
		{"bad timestamp", func(l map[string]string) { l[LabelCreatedAt] = "yesterday" }, LabelCreatedAt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := valid()
			tt.mutate(labels)

			job, err := ParseLabels(labels)
			require.Error(t, err)
			assert.Nil(t, job)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

// TestParseLabels_NoCreatedAt verifies that created-at is optional.
func TestParseLabels_NoCreatedAt(t *testing.T) {
	labels := BuildLabels(Job{Input: "in.svg", Output: "out.pdf", Step: 3})
	delete(labels, LabelCreatedAt)

	job, err := ParseLabels(labels)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Step)
	assert.True(t, job.CreatedAt.IsZero())
}

func TestFilterLabels(t *testing.T) {
	assert.Equal(t, []string{"overlay-export.managed-by=overlay-export"}, FilterLabels())
}
