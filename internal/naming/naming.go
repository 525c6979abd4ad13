// Package naming derives GraphQL operation names from entity names.
//
// An operation name is the verb followed by the PascalCase entity name, with
// a trailing "s" for the collection verbs (list and search):
//
//	Resolve("order_item", VerbGet)  -> getOrderItem
//	Resolve("order_item", VerbList) -> listOrderItems
package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownVerb is returned by ParseVerb for anything outside the verb set.
var ErrUnknownVerb = errors.New("unknown verb")

// Verb is the operation kind prefixed onto an entity name.
type Verb string

const (
	VerbGet    Verb = "get"
	VerbList   Verb = "list"
	VerbSearch Verb = "search"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Verbs lists every verb in a stable order.
var Verbs = []Verb{VerbGet, VerbList, VerbSearch, VerbCreate, VerbUpdate, VerbDelete}

// Plural reports whether operations for this verb return a collection.
func (v Verb) Plural() bool {
	return v == VerbList || v == VerbSearch
}

// Mutation reports whether the verb maps to a GraphQL mutation.
func (v Verb) Mutation() bool {
	return v == VerbCreate || v == VerbUpdate || v == VerbDelete
}

// ParseVerb converts a string into a Verb.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Verbs {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVerb, s)
}

// Operation identifies a backend operation and the key its result is stored
// under in the response payload.
type Operation struct {
	Name        string
	ResponseKey string
}

// WithResponseKey returns a copy of op reading its result from key. An empty
// key keeps the operation name.
func (op Operation) WithResponseKey(key string) Operation {
	if key != "" {
		op.ResponseKey = key
	}
	return op
}

// Named returns an operation whose response key equals its name.
func Named(name string) Operation {
	return Operation{Name: name, ResponseKey: name}
}

// Resolve maps an entity name and verb to an operation.
func Resolve(entity string, verb Verb) Operation {
	name := string(verb) + PascalCase(entity)
	if verb.Plural() {
		name += "s"
	}
	return Named(name)
}

// Action picks create or update for a write based on the presence of an id.
func Action(fields map[string]any) Verb {
	if HasID(fields) {
		return VerbUpdate
	}
	return VerbCreate
}

// HasID reports whether fields carries a non-empty id.
func HasID(fields map[string]any) bool {
	id, ok := fields["id"]
	if !ok || id == nil {
		return false
	}
	if s, ok := id.(string); ok {
		return s != ""
	}
	return true
}

// PascalCase joins the words of s with each word title-cased. Words are split
// on non-alphanumeric runes, lower-to-upper transitions and the end of an
// acronym ("XMLHttp" -> "Xml", "Http"). Words after the first that begin
// with a digit are prefixed with "_" so the result stays an identifier.
// Non-ASCII letters are kept ("café" -> "Café").
func PascalCase(s string) string {
	words := splitWords(s)

	var b strings.Builder
	for i, w := range words {
		if i > 0 && unicode.IsDigit([]rune(w)[0]) {
			b.WriteByte('_')
		}
		// a Caser is stateful so one is created per word
		b.WriteString(cases.Title(language.Und).String(w))
	}
	return b.String()
}

func splitWords(s string) []string {
	runes := []rune(s)

	var words []string
	start := -1
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if start >= 0 {
				words = append(words, string(runes[start:i]))
				start = -1
			}
			continue
		}

		if start < 0 {
			start = i
			continue
		}

		prev := runes[i-1]
		boundary := unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev))
		if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}

		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}

	if start >= 0 {
		words = append(words, string(runes[start:]))
	}
	return words
}
