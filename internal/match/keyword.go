package match

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var spacesPattern = regexp.MustCompile(`\s+`)

// Normalize lowercases text for matching using Unicode case folding, so
// keywords behave the same for non-ASCII page titles and filenames.
func Normalize(text string) string {
	return cases.Fold().String(text)
}

// Contains reports whether the keyword occurs in the haystack. The haystack
// and keyword must already be normalized. Exact substring containment is
// tested first; when that fails, a fixed set of separator-substitution
// variants of the keyword is tried to tolerate URL encoding and punctuation
// differences ("cool mod" also matches "cool-mod", "cool_mod", "cool+mod",
// "cool%20mod", and the reverse substitutions). First hit wins; there is no
// fuzzy matching or stemming.
func Contains(haystack, keyword string) bool {
	if keyword == "" {
		return false
	}
	if strings.Contains(haystack, keyword) {
		return true
	}
	for _, variant := range keywordVariants(keyword) {
		if variant != keyword && strings.Contains(haystack, variant) {
			return true
		}
	}
	return false
}

func keywordVariants(keyword string) []string {
	return []string{
		spacesPattern.ReplaceAllString(keyword, "-"),
		spacesPattern.ReplaceAllString(keyword, "_"),
		spacesPattern.ReplaceAllString(keyword, "+"),
		spacesPattern.ReplaceAllString(keyword, "%20"),
		strings.ReplaceAll(keyword, "-", " "),
		strings.ReplaceAll(keyword, "_", " "),
		strings.ReplaceAll(keyword, "+", " "),
	}
}
