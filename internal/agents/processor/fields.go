package processor

import "regexp"

var fieldPattern = regexp.MustCompile(`\{([^{}\s]+)\}`)

// reservedFields are placeholders with built-in expansions rather than
// per-call input values.
var reservedFields = map[string]bool{
	"user_info": true,
}

// ExtractFields returns the {field} placeholders of a system message in
// order of first appearance, deduplicated.
func ExtractFields(systemMessage string) []string {
	matches := fieldPattern.FindAllStringSubmatch(systemMessage, -1)
	seen := make(map[string]bool, len(matches))
	fields := make([]string, 0, len(matches))
	for _, match := range matches {
		field := match[1]
		if reservedFields[field] || seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, field)
	}
	return fields
}

// MergeSampleValues keeps the existing sample value for every field that
// survived an edit and fills the rest from the freshly sampled set.
func MergeSampleValues(fields []string, existing, sampled map[string]string) map[string]string {
	merged := make(map[string]string, len(fields))
	for _, field := range fields {
		if value, ok := existing[field]; ok {
			merged[field] = value
			continue
		}
		if value, ok := sampled[field]; ok {
			merged[field] = value
		}
	}
	return merged
}
