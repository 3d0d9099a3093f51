// ABOUTME: Explicit scanner for markdown image references that carry base64 data URIs.
// ABOUTME: Finds ![label](data:image/<subtype>;base64,<payload>) tokens in a single linear pass.
package format

import "strings"

const (
	imageOpen    = "!["
	imageBridge  = "](data:image/"
	base64Marker = ";base64,"
)

// imageToken is one matched reference. start and end are byte offsets of the
// whole token in the scanned text; uri excludes the surrounding parentheses.
type imageToken struct {
	start int
	end   int
	label string
	uri   string
}

// scanImages returns every image token in s, left to right and
// non-overlapping. The label is the shortest text between "![" and
// "](data:image/", and the payload ends at the first ")" after ";base64,".
//
// Each search resumes where the previous one stopped. If any boundary is
// missing, no later opening can complete either, so scanning stops.
func scanImages(s string) []imageToken {
	var tokens []imageToken
	pos := 0
	for pos < len(s) {
		open := strings.Index(s[pos:], imageOpen)
		if open < 0 {
			break
		}
		open += pos
		labelStart := open + len(imageOpen)

		bridge := strings.Index(s[labelStart:], imageBridge)
		if bridge < 0 {
			break
		}
		bridge += labelStart
		uriStart := bridge + 2
		subtypeStart := bridge + len(imageBridge)

		marker := strings.Index(s[subtypeStart:], base64Marker)
		if marker < 0 {
			break
		}
		payloadStart := subtypeStart + marker + len(base64Marker)

		closing := strings.IndexByte(s[payloadStart:], ')')
		if closing < 0 {
			break
		}
		closing += payloadStart

		tokens = append(tokens, imageToken{
			start: open,
			end:   closing + 1,
			label: s[labelStart:bridge],
			uri:   s[uriStart:closing],
		})
		pos = closing + 1
	}
	return tokens
}
