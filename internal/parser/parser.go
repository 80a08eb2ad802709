// internal/parser/parser.go
package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Item is one recognized product with a gram quantity. Assumed marks the
// default of 100 g applied when the user omitted the quantity.
type Item struct {
	Name    string
	Grams   int
	Assumed bool
}

// Parser turns free-form ingredient text into items plus the fragments that
// could not be resolved. Implementations differ only in accuracy, never in
// contract: the model-assisted tier falls back to the rule tier, so its
// absence is invisible to callers.
type Parser interface {
	Parse(ctx context.Context, text string) (items []Item, unresolved []string)
}

const defaultGrams = 100

// Trailing quantity with an optional unit word, e.g. "Рис 180 г" or
// "Chicken breast 150g".
var quantityRe = regexp.MustCompile(`(?i)^(.*?)[\s,]*(\d+)\s*(?:г|гр|грамм|граммов|g|gr|grams?)?\.?$`)

// RuleParser is the hand-rolled tier: items delimited by ';', ',' or
// newline, each expected to end with a gram quantity. A missing quantity
// defaults to 100 g rather than rejecting the item.
type RuleParser struct{}

func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

func (p *RuleParser) Parse(_ context.Context, text string) ([]Item, []string) {
	var items []Item
	var unresolved []string

	fragments := strings.FieldsFunc(text, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})
	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}

		if m := quantityRe.FindStringSubmatch(fragment); m != nil {
			name := strings.TrimSpace(m[1])
			grams, err := strconv.Atoi(m[2])
			if name == "" || err != nil || grams <= 0 {
				unresolved = append(unresolved, fragment)
				continue
			}
			items = append(items, Item{Name: name, Grams: grams})
			continue
		}

		// No quantity at all: keep the item with the documented default
		// as long as it looks like a product name.
		if hasLetter(fragment) {
			items = append(items, Item{Name: fragment, Grams: defaultGrams, Assumed: true})
			continue
		}
		unresolved = append(unresolved, fragment)
	}
	return items, unresolved
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
