package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slot is one position in a naming template.
type Slot int

const (
	SlotCategory Slot = iota
	SlotSender
	SlotPatient
	SlotDate
)

// Template is the ordered list of slots a category's filename is built from.
type Template []Slot

var (
	fullTemplate     = Template{SlotCategory, SlotSender, SlotPatient, SlotDate}
	senderTemplate   = Template{SlotCategory, SlotSender, SlotDate}
	fallbackTemplate = Template{SlotCategory, SlotDate}
)

// Registry maps known categories to their naming templates. Lookup is case-
// and diacritic-insensitive; unknown categories get the fallback template so
// the classification service is free to invent new ones.
type Registry struct {
	templates map[string]Template
}

// NewRegistry creates a registry preloaded with the known category templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template)}

	for category, tpl := range map[string]Template{
		"Arztbrief":         fullTemplate,
		"Rezeptanforderung": fullTemplate,
		"Befund":            fullTemplate,
		"Labor":             fullTemplate,
		"Überweisung":       fullTemplate,
		"Medikationsplan":   fullTemplate,
		"Kommunikation":     senderTemplate,
		"Bestellung":        senderTemplate,
		"Werbung":           fallbackTemplate,
	} {
		r.Register(category, tpl)
	}

	return r
}

// Register adds or replaces the template for a category.
func (r *Registry) Register(category string, tpl Template) {
	r.templates[normalizeCategory(category)] = tpl
}

// Lookup returns the template for a category, or the fallback [category, date]
// template when the category is not known.
func (r *Registry) Lookup(category string) Template {
	if tpl, ok := r.templates[normalizeCategory(category)]; ok {
		return tpl
	}
	return fallbackTemplate
}

// Known reports whether the category has a registered template.
func (r *Registry) Known(category string) bool {
	_, ok := r.templates[normalizeCategory(category)]
	return ok
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeCategory folds case and strips diacritics so that "Überweisung"
// and "uberweisung" match the same entry.
func normalizeCategory(s string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
