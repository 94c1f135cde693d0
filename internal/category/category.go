// Package category maps free-text product names to spending categories using
// an ordered table of substring keyword rules.
//
// Matching is a heuristic: keywords match anywhere in the normalized text,
// so a short keyword can hit inside an unrelated longer word ("ser" inside
// "deser"). That is accepted behavior, not a bug.
package category

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Rule struct {
	Category string          `json:"category"`
	Emoji    string          `json:"emoji"`
	Keywords []string        `json:"keywords,omitempty"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

// IsFallback reports whether r is a catch-all rule.
func (r Rule) IsFallback() bool {
	return len(r.Keywords) == 0
}

type compiledRule struct {
	rule     Rule
	keywords []string
}

// Classifier holds a validated, pre-normalized rule table. It is immutable
// and safe for concurrent use.
type Classifier struct {
	rules []compiledRule
}

var (
	ErrNoRules          = errors.New("category: rule table is empty")
	ErrMissingFallback  = errors.New("category: last rule must have no keywords")
	ErrMisplacedDefault = errors.New("category: only the last rule may have no keywords")
)

// NewClassifier validates rules and returns a Classifier over a copy of them.
// The last rule must be the fallback (no keywords) and no other rule may be.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		last := i == len(rules)-1
		switch {
		case last && !r.IsFallback():
			return nil, ErrMissingFallback
		case !last && r.IsFallback():
			return nil, fmt.Errorf("%w: rule %d (%s)", ErrMisplacedDefault, i, r.Category)
		}
		r.Keywords = append([]string(nil), r.Keywords...)
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if nk := Normalize(k); nk != "" {
				keywords = append(keywords, nk)
			}
		}
		compiled = append(compiled, compiledRule{rule: r, keywords: keywords})
	}
	return &Classifier{rules: compiled}, nil
}

var defaultClassifier = func() *Classifier {
	c, err := NewClassifier(defaultRules)
	if err != nil {
		panic(err)
	}
	return c
}()

// Default returns the classifier over the built-in rule table.
func Default() *Classifier {
	return defaultClassifier
}

// Classify classifies with the built-in rule table.
func Classify(name, brand string) Rule {
	return defaultClassifier.Classify(name, brand)
}

// Classify returns the first rule with a keyword contained in the normalized
// "name brand" text, or the fallback rule if none matches.
func (c *Classifier) Classify(name, brand string) Rule {
	full := Normalize(name + " " + brand)
	for _, cr := range c.rules {
		for _, k := range cr.keywords {
			if strings.Contains(full, k) {
				return cr.rule
			}
		}
	}
	return c.rules[len(c.rules)-1].rule
}

// RankOf returns the table position of the rule labeled category, or the
// fallback's position if the label is unknown.
func (c *Classifier) RankOf(category string) int {
	for i, cr := range c.rules {
		if cr.rule.Category == category {
			return i
		}
	}
	return len(c.rules) - 1
}

// Rules returns a copy of the table in priority order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, cr := range c.rules {
		out[i] = cr.rule
		out[i].Keywords = append([]string(nil), cr.rule.Keywords...)
	}
	return out
}

// Normalize lowercases s and strips combining diacritical marks. Letters
// without a canonical decomposition, such as "ł", are left unchanged.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
