package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidFileName is returned for names that are empty or try to walk out
// of the upload directory.
var ErrInvalidFileName = errors.New("invalid file name")

// maxFileNameRunes bounds the stored name; object keys add a prefix to it.
const maxFileNameRunes = 120

// SanitizeFileName turns an uploaded resume name into a single safe path
// segment. Separators and characters that break object keys or
// Content-Disposition become "_". Control characters are dropped and runs of
// whitespace collapse to one space.
func SanitizeFileName(name string) (string, error) {
	for _, seg := range strings.FieldsFunc(name, isPathSeparator) {
		if strings.TrimSpace(seg) == ".." {
			return "", ErrInvalidFileName
		}
	}

	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case r == utf8.RuneError || unicode.IsControl(r):
			continue
		case isPathSeparator(r) || strings.ContainsRune(`":*?<>|`, r):
			r = '_'
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}

	s := b.String()
	if strings.Trim(s, ". _") == "" {
		return "", ErrInvalidFileName
	}
	return truncateFileName(s, maxFileNameRunes), nil
}

func isPathSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// truncateFileName shortens the stem so the extension survives.
func truncateFileName(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	ext := path.Ext(s)
	if utf8.RuneCountInString(ext) >= limit/2 {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(s, ext))
	return strings.TrimRight(string(stem[:limit-utf8.RuneCountInString(ext)]), " ") + ext
}
