package naming

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/faxfinity/faxsort/internal/fax"
)

const dateLayout = "20060102"

// unknownCategory fills the category slot when the reported category
// sanitizes to nothing; a name must never consist of a bare date.
const unknownCategory = "Unbekannt"

// Builder turns a classification result into a filesystem-safe file name
// according to the category's template.
type Builder struct {
	registry *Registry
	ownName  string
}

// NewBuilder creates a builder. ownName is the operator's own name; fields
// matching it are dropped from built names.
func NewBuilder(registry *Registry, ownName string) *Builder {
	return &Builder{registry: registry, ownName: ownName}
}

// BuildName computes the candidate file name for a classified document.
// Template slots with absent fields are omitted entirely; the date slot falls
// back to the backup timestamp's date so every name stays chronologically
// sortable.
func (b *Builder) BuildName(c fax.Classification, backup fax.BackupRecord) string {
	template := b.registry.Lookup(c.Category)

	date := c.Date
	if date.IsZero() {
		date = backup.CreatedAt
	}

	var parts []string
	for _, slot := range template {
		var value string
		switch slot {
		case SlotCategory:
			value = SanitizeField(c.Category)
			if value == "" {
				value = unknownCategory
			}
		case SlotSender:
			if !MatchesOperator(c.Sender, b.ownName) {
				value = SanitizeField(c.Sender)
			}
		case SlotPatient:
			if !MatchesOperator(c.Patient, b.ownName) {
				value = SanitizeField(c.Patient)
			}
		case SlotDate:
			value = date.Format(dateLayout)
		}
		if value != "" {
			parts = append(parts, value)
		}
	}

	return strings.Join(parts, "_") + extensionFor(backup.OriginalName)
}

// extensionFor preserves the original's ".pdf" casing where distinguishable.
func extensionFor(originalName string) string {
	ext := filepath.Ext(originalName)
	if strings.EqualFold(ext, ".pdf") {
		return ext
	}
	return ".pdf"
}

// SanitizeField makes a single metadata field safe for use in a file name:
// whitespace runs become single underscores, characters illegal in file names
// are replaced, underscore runs are collapsed, and leading/trailing
// separators are trimmed.
func SanitizeField(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == '-' || r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	collapsed := collapseUnderscores(sb.String())
	return strings.Trim(collapsed, "_")
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}
