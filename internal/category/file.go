package category

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fileRule struct {
	Category string   `yaml:"category"`
	Emoji    string   `yaml:"emoji"`
	Keywords []string `yaml:"keywords"`
	AvgPrice string   `yaml:"avg_price"`
}

type ruleFile struct {
	Rules []fileRule `yaml:"rules"`
}

// LoadFile reads a YAML rule table from path. See Parse for the format.
func LoadFile(path string) (*Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a YAML rule table of the form
//
//	rules:
//	  - category: Nabiał
//	    emoji: "🥛"
//	    keywords: [mleko, jogurt]
//	    avg_price: "4.50"
//	  - category: Inne
//	    avg_price: "7"
//
// Rules keep file order; the last one must have no keywords.
func Parse(r io.Reader) (*Classifier, error) {
	var rf ruleFile
	if err := yaml.NewDecoder(r).Decode(&rf); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	rules := make([]Rule, 0, len(rf.Rules))
	for i, fr := range rf.Rules {
		if fr.Category == "" {
			return nil, fmt.Errorf("rule %d: category is required", i)
		}
		price, err := decimal.NewFromString(fr.AvgPrice)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): invalid avg_price %q: %w", i, fr.Category, fr.AvgPrice, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("rule %d (%s): avg_price must not be negative", i, fr.Category)
		}
		rules = append(rules, Rule{
			Category: fr.Category,
			Emoji:    fr.Emoji,
			Keywords: fr.Keywords,
			AvgPrice: price,
		})
	}

	return NewClassifier(rules)
}
