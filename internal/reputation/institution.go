package reputation

import "strings"

// institutionKeywords are checked in order within each affiliation segment.
var institutionKeywords = []string{"university", "hospital"}

// NormalizeInstitution picks the most salient segment of a composite
// affiliation string such as "Dept. X, University Y, City, Country".
//
// Segments are separated by ", ". The first segment mentioning a university or
// hospital wins; otherwise the second segment is used when there is one, else
// the whole string.
func NormalizeInstitution(affiliation string) string {
	segments := strings.Split(affiliation, ", ")
	for _, seg := range segments {
		lower := strings.ToLower(seg)
		for _, kw := range institutionKeywords {
			if strings.Contains(lower, kw) {
				return seg
			}
		}
	}
	if len(segments) > 1 {
		return segments[1]
	}
	return segments[0]
}
