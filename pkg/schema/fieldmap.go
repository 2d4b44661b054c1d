// Field mapping: matching an external, loosely spelled field name to the
// shape's internal field. One candidate list serves both the create and the
// update paths.
package schema

import "strings"

// candidateKeys generates the normalized spellings tried for an external key,
// in match order: the key as given, the key with underscores removed, the key
// with spaces removed. Matching is case-insensitive throughout, so candidates
// are lowercased here.
func candidateKeys(externalKey string) []string {
	lower := strings.ToLower(externalKey)
	candidates := []string{lower}
	if stripped := strings.ReplaceAll(lower, "_", ""); stripped != lower {
		candidates = append(candidates, stripped)
	}
	if stripped := strings.ReplaceAll(lower, " ", ""); stripped != lower {
		candidates = append(candidates, stripped)
	}
	return candidates
}

// ResolveField maps an external field name to a field of the shape, trying
// each candidate spelling against internal names first and storage aliases
// second. Returns nil when no candidate matches; callers decide whether an
// unresolved key is skippable or a validation failure.
func (s *Shape) ResolveField(externalKey string) *Field {
	for _, key := range candidateKeys(externalKey) {
		if f, ok := s.byName[key]; ok {
			return f
		}
		if f, ok := s.byAlias[key]; ok {
			return f
		}
	}
	return nil
}

// ResolveRequired reports whether any key of the payload resolves to the
// given field with a non-nil value. Create uses it to enforce required
// fields before assigning anything.
func (s *Shape) ResolveRequired(f *Field, payload map[string]any) bool {
	for key, value := range payload {
		if value == nil {
			continue
		}
		if resolved := s.ResolveField(key); resolved == f {
			return true
		}
	}
	return false
}
