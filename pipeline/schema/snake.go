package schema

import (
	"strings"
	"unicode"
)

// ToSnake converts a PascalCase identifier to snake_case. Acronyms stay
// together ("WebsiteURL" -> "website_url") and digits stick to the word
// before them ("AddressLine1" -> "address_line1").
func ToSnake(s string) string {
	rs := []rune(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(rs) + 4)
	for i, r := range rs {
		if r == ' ' || r == '-' {
			r = '_'
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if prev != '_' && prev != ' ' && prev != '-' &&
				(unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
