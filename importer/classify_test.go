package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loamdb/loam/errors"
)

func TestClassifyKnownCauses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "duplicate id",
			err:     errors.Wrap(errors.ErrDuplicateID, "node stage"),
			message: "Duplicate input ids that would otherwise clash can be put into separate id spaces.",
		},
		{
			name:    "missing data",
			err:     errors.Wrap(errors.ErrMissingData, "relationship stage"),
			message: "Relationship missing mandatory field.",
		},
		{
			name:    "bad input",
			err:     errors.Wrap(errors.ErrBadInput, "parse"),
			message: "Error in input data.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.err)
			assert.Equal(t, tt.message, c.Message)
			assert.False(t, c.Unclassified)
		})
	}
}

func TestClassifyMultilineMentionsFlag(t *testing.T) {
	c := Classify(errors.Wrap(errors.ErrMultilineField, "row 7"))
	assert.Contains(t, c.Message, "--multiline-fields")
	assert.False(t, c.Unclassified)
}

func TestClassifyWalksWrappedChain(t *testing.T) {
	err := errors.Wrap(errors.Wrap(errors.ErrDuplicateID, "inner"), "outer")
	c := Classify(err)
	assert.Contains(t, c.Message, "separate id spaces")
}

func TestClassifyPriorityOverDataQuality(t *testing.T) {
	// A tolerance breach marked with the triggering entry kind reads as that
	// kind, not as a generic failure.
	err := errors.Mark(
		errors.Wrap(errors.ErrDataQualityExceeded, "2 bad entries exceed tolerance 1"),
		errors.ErrDuplicateID)
	c := Classify(err)
	assert.Contains(t, c.Message, "separate id spaces")
	assert.False(t, c.Unclassified)
}

func TestClassifyUnknownCause(t *testing.T) {
	c := Classify(errors.New("disk on fire"))
	assert.True(t, c.Unclassified)
	assert.Contains(t, c.Message, "disk on fire")
}
