package services

import (
	"regexp"
	"strings"
)

// spaceClass also covers NBSP and the other Unicode separators that OCR emits.
const spaceClass = `[\s\v\x{85}\p{Z}]`

var (
	legalSuffixPattern = regexp.MustCompile(`(?i)(?:^|(?:` + spaceClass + `|,)+)(?:pvt\.?` + spaceClass + `*ltd|llp|inc|corp|company|co)\.?` + spaceClass + `*$`)
	whitespaceRun      = regexp.MustCompile(spaceClass + `{2,}`)
)

// NormalizeVendorName strips trailing legal suffixes such as "Pvt. Ltd." or
// "LLP" and tidies whitespace. Applying it twice gives the same result.
func NormalizeVendorName(name string) string {
	name = strings.TrimSpace(name)
	for {
		stripped := legalSuffixPattern.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
}
