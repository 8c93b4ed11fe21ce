package compose

import "strings"

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize converts every line-break variant to "\n".
func Normalize(text string) string {
	return lineBreaks.Replace(text)
}
