package naming

import "strings"

// Tokens that carry no identity: titles, salutations, and the address parts
// an operator name like "Dr. med. F. Rasche, Huttenstr. 6" tends to include.
var ownNameNoise = map[string]struct{}{
	"dr":     {},
	"med":    {},
	"prof":   {},
	"dipl":   {},
	"herr":   {},
	"frau":   {},
	"praxis": {},
	"str":    {},
}

// MatchesOperator reports whether a sender or patient field names the
// operator. It matches the full operator name or any significant token of it
// (at least three letters, not a title or address word), case-insensitively.
// The recipient must never end up in their own archive's filenames.
func MatchesOperator(field, ownName string) bool {
	if field == "" || ownName == "" {
		return false
	}

	fieldLower := strings.ToLower(field)
	ownLower := strings.ToLower(ownName)

	if strings.Contains(fieldLower, ownLower) {
		return true
	}

	for _, token := range significantTokens(ownLower) {
		if strings.Contains(fieldLower, token) {
			return true
		}
	}
	return false
}

// significantTokens splits an operator name into the tokens worth matching.
func significantTokens(ownName string) []string {
	var tokens []string
	for _, part := range strings.Fields(ownName) {
		part = strings.Trim(part, ".,")
		if len([]rune(part)) < 3 {
			continue
		}
		if _, noise := ownNameNoise[part]; noise {
			continue
		}
		// "huttenstr" and friends: street tokens are not identity either
		if strings.HasSuffix(part, "str") || strings.HasSuffix(part, "straße") {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens
}
