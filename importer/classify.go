package importer

import (
	"github.com/loamdb/loam/errors"
)

// Classification is the user-facing reading of a run failure: a short
// actionable message, and whether full diagnostics should be printed even
// without verbose mode.
type Classification struct {
	Message      string
	Unclassified bool
}

// Classify maps a run failure onto one of the known input-malformation
// patterns by walking its cause chain, in fixed priority order. It never
// recovers anything; the run always ends Failed when this path is invoked.
func Classify(err error) Classification {
	switch {
	case errors.Is(err, errors.ErrDuplicateID):
		return Classification{
			Message: "Duplicate input ids that would otherwise clash can be put into separate id spaces.",
		}
	case errors.Is(err, errors.ErrMissingData):
		return Classification{
			Message: "Relationship missing mandatory field.",
		}
	case errors.Is(err, errors.ErrMultilineField):
		return Classification{
			Message: "Detected field which spanned multiple lines for an import where --multiline-fields=false. " +
				"If you know that your input data include fields containing new-line characters " +
				"then import with this option set to true.",
		}
	case errors.Is(err, errors.ErrBadInput):
		return Classification{
			Message: "Error in input data.",
		}
	default:
		return Classification{
			Message:      "Import error: " + err.Error(),
			Unclassified: true,
		}
	}
}
