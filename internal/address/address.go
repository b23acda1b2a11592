// Package address canonicalizes free-text permit addresses and scores the
// similarity between two of them. Two records at "123 Main Street Suite 200"
// and "123 Main St" must look like the same building to the deduper.
package address

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// streetTypes maps full street-type words to their canonical abbreviations.
// Applied token-by-token after lowercasing.
var streetTypes = map[string]string{
	"street":     "st",
	"avenue":     "ave",
	"boulevard":  "blvd",
	"road":       "rd",
	"drive":      "dr",
	"lane":       "ln",
	"court":      "ct",
	"place":      "pl",
	"parkway":    "pkwy",
	"highway":    "hwy",
	"circle":     "cir",
	"terrace":    "ter",
	"expressway": "expy",
	"freeway":    "fwy",
}

// unitPattern matches unit/suite designators and their values, including a
// bare "#204" form. Stripped entirely: a suite number never distinguishes
// one physical project from another.
var unitPattern = regexp.MustCompile(`\b(?:suite|ste|unit|apt|apartment|bldg|building|floor|fl|rm|room)\.?\s*#?\s*[a-z0-9-]+\b|#\s*[a-z0-9-]+\b`)

// punctPattern matches characters that carry no address meaning.
var punctPattern = regexp.MustCompile(`[.,;:'"()]`)

// spacePattern collapses runs of whitespace.
var spacePattern = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a raw address string. Deterministic and idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	s = punctPattern.ReplaceAllString(s, " ")
	s = unitPattern.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if abbr, ok := streetTypes[tok]; ok {
			tokens[i] = abbr
		}
	}
	return strings.Join(tokens, " ")
}

// streetTypeAbbrevs is the canonical abbreviation set, used to split a
// normalized address into house number, street name, and street type.
var streetTypeAbbrevs = func() map[string]bool {
	set := make(map[string]bool, len(streetTypes))
	for _, abbr := range streetTypes {
		set[abbr] = true
	}
	return set
}()

// mismatchCeiling caps pairs whose house number, street type, or street name
// disagree. A shared house number and street type must not pull two
// different streets over the dedup threshold.
const mismatchCeiling = 45

// components is a normalized address split for matching. Tokens after the
// street type (city fragments and the like) are ignored.
type components struct {
	number string
	name   string
	stype  string
}

// Similarity scores how likely two addresses refer to the same physical
// location, 0..100. Both inputs are normalized first, then split into house
// number, street name, and street type. The street name dominates: its
// similarity blends token overlap (Sørensen-Dice) with normalized edit
// distance, and matching number/type tokens only top it up. Pairs that
// disagree on number, type, or name are capped below 50.
func Similarity(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	ca, cb := splitComponents(na), splitComponents(nb)
	name := 0.65*tokenOverlap(ca.name, cb.name) + 0.35*editSimilarity(ca.name, cb.name)

	score := 0.70 * name
	if ca.number != "" && ca.number == cb.number {
		score += 15
	}
	if ca.stype != "" && ca.stype == cb.stype {
		score += 15
	}
	if differentLocation(ca, cb, name) && score > mismatchCeiling {
		score = mismatchCeiling
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score + 0.5)
}

// differentLocation reports whether the two addresses cannot plausibly be the
// same building: differing house numbers, differing street types, or street
// names with little in common.
func differentLocation(ca, cb components, nameSim float64) bool {
	if ca.number != "" && cb.number != "" && ca.number != cb.number {
		return true
	}
	if ca.stype != "" && cb.stype != "" && ca.stype != cb.stype {
		return true
	}
	return nameSim < 60
}

func splitComponents(norm string) components {
	tokens := strings.Fields(norm)
	var c components
	if len(tokens) > 0 && isHouseNumber(tokens[0]) {
		c.number = tokens[0]
		tokens = tokens[1:]
	}
	for i, tok := range tokens {
		if streetTypeAbbrevs[tok] {
			c.stype = tok
			tokens = tokens[:i]
			break
		}
	}
	c.name = strings.Join(tokens, " ")
	return c
}

func isHouseNumber(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// tokenOverlap returns the Sørensen-Dice coefficient over token sets, 0..100.
func tokenOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for tok := range ta {
		if tb[tok] {
			common++
		}
	}
	return 200 * float64(common) / float64(len(ta)+len(tb))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// editSimilarity returns 100 minus the normalized Levenshtein distance.
func editSimilarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}
