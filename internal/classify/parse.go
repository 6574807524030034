package classify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/naming"
)

const dateLayout = "2006-01-02"

// defaultCategory is used when the model reports no usable category at all.
const defaultCategory = "Befund"

// Values models emit instead of leaving a field empty.
var placeholderValues = map[string]struct{}{
	"":                  {},
	"none":              {},
	"null":              {},
	"n/a":               {},
	"n.a.":              {},
	"-":                 {},
	"unbekannt":         {},
	"nicht erkennbar":   {},
	"nicht ersichtlich": {},
	"nicht angegeben":   {},
	"nicht vorhanden":   {},
	"nicht bekannt":     {},
	"keine angabe":      {},
	"keine":             {},
	"k.a.":              {},
	"k. a.":             {},
}

// ParseResponse maps the raw model output to a classification result. It
// accepts plain JSON, JSON inside markdown fences or surrounding prose, and
// as a last resort a markdown "**Kategorie:** ..." layout some models fall
// back to. ownName filtering is applied during normalization so a recipient
// misread as sender or patient never leaves this package.
func ParseResponse(raw string, ownName string) (fax.Classification, error) {
	if fields, ok := decodeObject(raw); ok {
		return normalize(fields, ownName), nil
	}

	if extracted := extractJSON(raw); extracted != "" {
		if fields, ok := decodeObject(extracted); ok {
			return normalize(fields, ownName), nil
		}
	}

	if fields, ok := parseMarkdown(raw); ok {
		return normalize(fields, ownName), nil
	}

	return fax.Classification{}, fmt.Errorf("%w: %s", ErrParse, truncate(raw, 200))
}

// decodeObject unmarshals a JSON object and picks the known fields
// case-insensitively (models capitalize keys inconsistently).
func decodeObject(text string) (map[string]string, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}

	fields := make(map[string]string, len(obj))
	for key, value := range obj {
		str, ok := value.(string)
		if !ok {
			continue
		}
		fields[strings.ToLower(key)] = str
	}

	// A parseable object without a kategorie key is not a classification.
	if _, ok := fields["kategorie"]; !ok {
		return nil, false
	}
	return fields, true
}

var markdownPatterns = map[string]*regexp.Regexp{
	"kategorie": regexp.MustCompile(`(?im)^\s*[-•]?\s*\**kategorie\**\s*:\s*\**(.+?)\**\s*$`),
	"absender":  regexp.MustCompile(`(?im)^\s*[-•]?\s*\**absender\**\s*:\s*\**(.+?)\**\s*$`),
	"patient":   regexp.MustCompile(`(?im)^\s*[-•]?\s*\**patient\**\s*:\s*\**(.+?)\**\s*$`),
	"datum":     regexp.MustCompile(`(?im)^\s*[-•]?\s*\**datum\**\s*:\s*\**(.+?)\**\s*$`),
}

var trailingParens = regexp.MustCompile(`\s*\(.*\)\s*$`)

// parseMarkdown handles answers like "**Kategorie:** Arztbrief" line by line.
func parseMarkdown(raw string) (map[string]string, bool) {
	fields := make(map[string]string)
	for key, pattern := range markdownPatterns {
		if m := pattern.FindStringSubmatch(raw); m != nil {
			value := strings.TrimSpace(strings.Trim(m[1], "*"))
			value = trailingParens.ReplaceAllString(value, "")
			fields[key] = value
		}
	}
	if fields["kategorie"] == "" {
		return nil, false
	}
	return fields, true
}

// normalize cleans the extracted fields: placeholder strings become empty,
// the category gets a default, the recipient's own name is filtered out of
// sender and patient, and the document date is parsed if present.
func normalize(fields map[string]string, ownName string) fax.Classification {
	category := cleanField(fields["kategorie"])
	if category == "" {
		category = defaultCategory
	}

	sender := cleanField(fields["absender"])
	if naming.MatchesOperator(sender, ownName) {
		sender = ""
	}

	patient := cleanField(fields["patient"])
	if naming.MatchesOperator(patient, ownName) {
		patient = ""
	}

	var date time.Time
	if datum := cleanField(fields["datum"]); datum != "" {
		// An unparseable date is treated as absent, not as an error.
		if parsed, err := time.Parse(dateLayout, datum); err == nil {
			date = parsed
		}
	}

	return fax.Classification{
		Category: category,
		Sender:   sender,
		Patient:  patient,
		Date:     date,
	}
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if _, placeholder := placeholderValues[strings.ToLower(s)]; placeholder {
		return ""
	}
	return s
}

// extractJSON pulls the first balanced JSON object out of surrounding text
// (markdown fences, explanatory prose).
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	braceCount := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]

		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			braceCount++
		case ch == '}':
			braceCount--
			if braceCount == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
