package namematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := map[string]struct {
		external string
		stored   string
		want     bool
	}{
		"abbreviated first name":       {"A. Güler", "Arda Guler", true},
		"different players":            {"Arda Güler", "Kenan Yıldız", false},
		"last name only ascii folded":  {"Kilicsoy", "Semih Kılıçsoy", true},
		"stored last name only":        {"Semih Kılıçsoy", "Kilicsoy", true},
		"identical":                    {"Alperen Şengün", "Alperen Şengün", true},
		"transliterated":               {"Alperen Sengun", "Alperen Şengün", true},
		"diacritics beyond turkish":    {"João Félix", "Joao Felix", true},
		"shared short token not match": {"Can Uzun", "Can Bartu", false},
		"empty external":               {"", "Arda Güler", false},
		"empty stored":                 {"A. Güler", "", false},
		"case insensitive":             {"ARDA GÜLER", "arda guler", true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(tc.external, tc.stored))
		})
	}
}

func TestFold(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"turkish letters": {"Kılıçsoy", "kilicsoy"},
		"dotted capital":  {"İstanbul", "istanbul"},
		"mixed marks":     {"Šengün", "sengun"},
		"plain ascii":     {"Smith", "smith"},
		"whitespace":      {"  Arda Güler  ", "arda guler"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fold(tc.in))
		})
	}
}

func TestQueryVariants(t *testing.T) {
	variants := QueryVariants("Alperen Şengün", []string{"Sengun"})

	assert.Equal(t, []string{
		"Alperen Şengün",
		"Şengün",
		"alperen sengun",
		"sengun",
		"Sengun",
	}, variants)
}

func TestQueryVariantsSingleToken(t *testing.T) {
	variants := QueryVariants("Ronaldo", nil)
	assert.Equal(t, []string{"Ronaldo", "ronaldo"}, variants)
}

func TestQueryVariantsDeduplicates(t *testing.T) {
	// ASCII name folds to itself; no duplicate entries.
	variants := QueryVariants("Jude Bellingham", []string{"Bellingham"})
	assert.Equal(t, []string{"Jude Bellingham", "Bellingham", "jude bellingham", "bellingham"}, variants)
}
