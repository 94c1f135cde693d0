package category

import "github.com/shopspring/decimal"

// FallbackCategory is the label of the built-in catch-all rule.
const FallbackCategory = "Inne"

// defaultRules is the built-in rule table. Order is priority: the first rule
// with a matching keyword wins, so e.g. dairy is checked before drinks.
var defaultRules = []Rule{
	{
		Category: "Nabiał",
		Emoji:    "🥛",
		Keywords: []string{
			"mleko", "milk", "jogurt", "yogurt", "kefir", "maślanka", "śmietana",
			"ser", "gouda", "cheddar", "twaróg", "serek wiejski", "serek homogenizowany",
			"masło", "margaryna", "jajko", "jajka", "egg", "eggs",
		},
		AvgPrice: decimal.RequireFromString("4.5"),
	},
	{
		Category: "Pieczywo",
		Emoji:    "🥖",
		Keywords: []string{
			"chleb", "bułka", "bułki", "bagietka", "kajzerka", "grahamka", "tost",
			"tostowy", "rogal", "pita", "tortilla",
		},
		AvgPrice: decimal.RequireFromString("4.0"),
	},
	{
		Category: "Napoje",
		Emoji:    "🥤",
		Keywords: []string{
			"cola", "pepsi", "fanta", "sprite", "napój", "sok", "nektar", "woda",
			"herbata mrożona", "ice tea", "izotonik", "energetyk", "energy drink",
		},
		AvgPrice: decimal.RequireFromString("5.0"),
	},
	{
		Category: "Słodycze i przekąski",
		Emoji:    "🍫",
		Keywords: []string{
			"czekolada", "baton", "wafel", "ciastka", "herbatniki", "krakersy",
			"chipsy", "paluszki", "orzeszki", "żelki", "guma do żucia", "nutella",
			"krem czekoladowy",
		},
		AvgPrice: decimal.RequireFromString("6.0"),
	},
	{
		Category: "Warzywa",
		Emoji:    "🥕",
		Keywords: []string{
			"pomidor", "pomidory", "ogórek", "sałata", "marchew", "kapusta", "cebula",
			"czosnek", "papryka", "ziemniaki", "ziemniak", "brokuł", "brokuły",
			"kalafior", "szpinak", "rukola",
		},
		AvgPrice: decimal.RequireFromString("3.0"),
	},
	{
		Category: "Owoce",
		Emoji:    "🍎",
		Keywords: []string{
			"jabłko", "jabłka", "banan", "banany", "gruszka", "gruszki", "truskawki",
			"maliny", "borówki", "winogrona", "brzoskwinia", "morela", "śliwka",
		},
		AvgPrice: decimal.RequireFromString("4.0"),
	},
	{
		Category: "Mięso i ryby",
		Emoji:    "🥩",
		Keywords: []string{
			"kurczak", "filet z kurczaka", "pierś z kurczaka", "wołowina", "schab",
			"wieprzowina", "karkówka", "ryba", "łosoś", "tuńczyk", "parówki", "kiełbasa",
		},
		AvgPrice: decimal.RequireFromString("15.0"),
	},
	{
		Category: "Mrożonki",
		Emoji:    "❄️",
		Keywords: []string{
			"mrożone", "mrożonka", "pizza mrożona", "frytki mrożone",
			"mieszanka warzywna", "lody",
		},
		AvgPrice: decimal.RequireFromString("10.0"),
	},
	{
		Category: "Sucha żywność",
		Emoji:    "🍚",
		Keywords: []string{
			"ryż", "makaron", "kasza", "płatki śniadaniowe", "mąka", "cukier", "sól",
		},
		AvgPrice: decimal.RequireFromString("5.5"),
	},
	{
		Category: FallbackCategory,
		Emoji:    "🛒",
		Keywords: nil,
		AvgPrice: decimal.RequireFromString("7.0"),
	},
}

// DefaultRules returns a copy of the built-in rule table.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	for i, r := range defaultRules {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}
