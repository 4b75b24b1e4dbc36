package schema

import (
	"strings"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/model"
)

// Delimiter separates attribute URIs in the wire form of a path.
const Delimiter = model.PathDelimiter

// PathHelper is an ordered sequence of attribute URIs with optional flags.
type PathHelper struct {
	Attributes []string
	Required   *bool
	Multivalue *bool
}

// NewPathHelper returns a helper without flags.
func NewPathHelper(uris ...string) PathHelper {
	return PathHelper{Attributes: uris}
}

// FromAttributePath converts a model attribute path.
func FromAttributePath(p *model.AttributePath) PathHelper {
	return PathHelper{Attributes: p.URIs()}
}

// String returns the wire form of the path.
func (h PathHelper) String() string {
	return strings.Join(h.Attributes, Delimiter)
}

// Readable renders the path with dots.
func (h PathHelper) Readable() string {
	return strings.Join(h.Attributes, ".")
}

// Depth is the number of attributes in the path.
func (h PathHelper) Depth() int {
	return len(h.Attributes)
}

// Last returns the terminal attribute URI.
func (h PathHelper) Last() string {
	if len(h.Attributes) == 0 {
		return ""
	}

	return h.Attributes[len(h.Attributes)-1]
}

// HasPrefix reports whether p is a (non-strict) prefix of h.
func (h PathHelper) HasPrefix(p PathHelper) bool {
	if len(p.Attributes) > len(h.Attributes) {
		return false
	}

	for i, a := range p.Attributes {
		if h.Attributes[i] != a {
			return false
		}
	}

	return true
}

// IsMultivalue reports whether the multivalue flag is set to true.
func (h PathHelper) IsMultivalue() bool {
	return h.Multivalue != nil && *h.Multivalue
}

// IsRequired reports whether the required flag is set to true.
func (h PathHelper) IsRequired() bool {
	return h.Required != nil && *h.Required
}

// ParsePathHelper parses the wire form produced by String.
func ParsePathHelper(s string) (PathHelper, error) {
	if s == "" {
		return PathHelper{}, errors.New("empty attribute path")
	}

	var attrs []string

	for part := range strings.SplitSeq(s, Delimiter) {
		if strings.TrimSpace(part) == "" {
			return PathHelper{}, errors.Newf("invalid attribute path %q: empty segment", s)
		}

		attrs = append(attrs, part)
	}

	return PathHelper{Attributes: attrs}, nil
}

func boolPtr(b bool) *bool {
	return &b
}

// mergeFlag combines two optional flags; true wins.
func mergeFlag(have, add *bool) *bool {
	switch {
	case add == nil:
		return have
	case have == nil:
		return boolPtr(*add)
	default:
		return boolPtr(*have || *add)
	}
}
