package docker

import (
	"fmt"
	"strconv"
	"time"
)

// Label keys set on every converter container. They let the clean command
// find containers left behind by an interrupted run, and let a user map a
// container seen in `docker ps` back to the file it was converting.
//
// All keys share the "overlay-export." prefix to avoid collisions with
// labels set by other tools.
const (
	// LabelPrefix is the common prefix for all overlay-export labels.
	LabelPrefix = "overlay-export."

	// LabelManagedBy identifies containers created by overlay-export.
	// Key: "overlay-export.managed-by", Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelInput stores the host path of the SVG being converted.
	LabelInput = LabelPrefix + "input"

	// LabelOutput stores the host path of the file being produced.
	LabelOutput = LabelPrefix + "output"

	// LabelStep stores the overlay step number; "0" for a bypass
	// conversion of the unmodified input.
	LabelStep = LabelPrefix + "step"

	// LabelCreatedAt stores the container creation time, RFC3339 formatted.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "overlay-export"

// Job describes the conversion a container performs, as recorded in its
// labels.
type Job struct {
	// Input is the host path of the source SVG.
	Input string

	// Output is the host path of the converted file.
	Output string

	// Step is the overlay step number, 0 for the bypass conversion.
	Step int

	// CreatedAt is when the container was created.
	CreatedAt time.Time
}

// BuildLabels constructs the Docker label map for a converter container.
func BuildLabels(job Job) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelInput:     job.Input,
		LabelOutput:    job.Output,
		LabelStep:      strconv.Itoa(job.Step),
		LabelCreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reconstructs a Job from container labels. It fails when the
// container is not managed by overlay-export or a required label is
// missing or malformed.
func ParseLabels(labels map[string]string) (*Job, error) {
	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf("container is not managed by %s (label %s=%q)",
			ManagedByValue, LabelManagedBy, labels[LabelManagedBy])
	}

	required := []string{LabelInput, LabelOutput, LabelStep}
	for _, key := range required {
		if _, ok := labels[key]; !ok {
			return nil, fmt.Errorf("required label %q is missing", key)
		}
	}

	step, err := strconv.Atoi(labels[LabelStep])
	if err != nil || step < 0 {
		return nil, fmt.Errorf("invalid %s label %q", LabelStep, labels[LabelStep])
	}

	job := &Job{
		Input:  labels[LabelInput],
		Output: labels[LabelOutput],
		Step:   step,
	}

	// created-at is informational; old or hand-made containers may lack it.
	if raw, ok := labels[LabelCreatedAt]; ok {
		createdAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s label %q: %w", LabelCreatedAt, raw, err)
		}
		job.CreatedAt = createdAt
	}

	return job, nil
}

// FilterLabels returns the label selector matching every converter
// container, in the "key=value" form the Docker API filters expect.
func FilterLabels() []string {
	return []string{LabelManagedBy + "=" + ManagedByValue}
}
