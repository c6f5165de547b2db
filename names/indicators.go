/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"strings"
	"unicode"
)

// stageNameIndicators mark an extract as describing someone known by a
// single public name. Matched as case-insensitive substrings.
var stageNameIndicators = []string{
	"actress",
	"known mononymously",
	"known professionally",
	"mononym",
	"performer",
	"professionally known",
	"rapper",
	"singer",
	"songwriter",
	"stage name",
}

// femaleIndicators are matched against whole tokens only, so inflected forms
// such as "actresses" do not count.
var femaleIndicators = toSet([]string{
	"actress",
	"baroness",
	"businesswoman",
	"congresswoman",
	"countess",
	"daughter",
	"duchess",
	"empress",
	"female",
	"heiress",
	"her",
	"hers",
	"herself",
	"mother",
	"princess",
	"queen",
	"she",
	"sister",
	"sportswoman",
	"stateswoman",
	"wife",
	"woman",
})

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func hasStageNameIndicator(text string) bool {
	lower := strings.ToLower(text)

	for _, phrase := range stageNameIndicators {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	return false
}

func hasFemaleIndicator(text string) bool {
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r)
		})

		if femaleIndicators[token] {
			return true
		}
	}

	return false
}
