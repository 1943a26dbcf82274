package input

import (
	"os"

	"github.com/loamdb/loam/errors"
)

// NodeGroupSpec is one --nodes argument: an optional label set and the files
// forming a single file-set
type NodeGroupSpec struct {
	Labels []string
	Files  []string
}

// RelationshipGroupSpec is one --relationships argument: a default type name
// and the files forming a single file-set
type RelationshipGroupSpec struct {
	DefaultType string
	Files       []string
}

// ResolveNodeGroups folds the caller's ordered specs into one Group per label
// set. Specs sharing a label set (regardless of label order) land in the same
// group, with file-set order preserved as given. Pure data transformation
// apart from the existence check on each referenced path.
func ResolveNodeGroups(specs []NodeGroupSpec) ([]Group, error) {
	var groups []Group
	index := map[string]int{}

	for _, spec := range specs {
		if err := validateFileSet(spec.Files); err != nil {
			return nil, err
		}
		key := labelSetKey(spec.Labels)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Labels: append([]string(nil), spec.Labels...)})
		}
		groups[i].FileSets = append(groups[i].FileSets, spec.Files)
	}
	return groups, nil
}

// ResolveRelationshipGroups folds the caller's ordered specs into one Group
// per default type name, exact match
func ResolveRelationshipGroups(specs []RelationshipGroupSpec) ([]Group, error) {
	var groups []Group
	index := map[string]int{}

	for _, spec := range specs {
		if err := validateFileSet(spec.Files); err != nil {
			return nil, err
		}
		i, ok := index[spec.DefaultType]
		if !ok {
			i = len(groups)
			index[spec.DefaultType] = i
			groups = append(groups, Group{DefaultType: spec.DefaultType})
		}
		groups[i].FileSets = append(groups[i].FileSets, spec.Files)
	}
	return groups, nil
}

func validateFileSet(files []string) error {
	if len(files) == 0 {
		return errors.NewConfigurationError("file group contains an empty file-set")
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.NewConfigurationError("input file %s does not exist", f)
		}
	}
	return nil
}
