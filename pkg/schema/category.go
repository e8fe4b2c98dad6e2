package schema

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gnana997/themeforge/pkg/colorutil"
)

// Name keywords per category, checked in order.
var categoryKeywords = []struct {
	category Category
	pattern  *regexp.Regexp
}{
	{CategoryZIndex, regexp.MustCompile(`z-?index|(^|-)layer($|-)|(^|-)z($|-)`)},
	{CategoryShadow, regexp.MustCompile(`shadow|elevation`)},
	{CategoryRadius, regexp.MustCompile(`radius|round`)},
	{CategoryFont, regexp.MustCompile(`font|family|typeface|typograph|line-?height|letter-?spacing|weight|(^|-)text-(size|align|transform)`)},
	{CategorySpacing, regexp.MustCompile(`margin|padding|gap|spac|gutter|inset|(^|-)(width|height|size)($|-)`)},
	{CategoryColor, regexp.MustCompile(`colou?r|fill|stroke|accent|(^|-)bg($|-)|background|foreground|primary|secondary|brand|text|border|muted|surface`)},
}

var (
	shadowValue = regexp.MustCompile(`^(inset\s+)?-?\d*\.?\d+(px|rem|em)?\s+-?\d*\.?\d+(px|rem|em)?(\s+-?\d*\.?\d+(px|rem|em)?){0,2}\s+(#|[a-z])`)
	fontGeneric = regexp.MustCompile(`(^|,\s*)(serif|sans-serif|monospace|cursive|fantasy|system-ui|ui-sans-serif|ui-serif|ui-monospace|-apple-system)\s*($|,)`)
	integerOnly = regexp.MustCompile(`^-?\d+$`)
)

// InferCategory classifies a declaration from its name and value. The value
// shape wins over the name when it is unambiguous (a parseable color, a
// shadow, a font stack); otherwise name keywords decide.
func InferCategory(name, value string) Category {
	n := Kebab(name)
	v := strings.TrimSpace(value)

	switch {
	case colorutil.IsColor(v):
		return CategoryColor
	case shadowValue.MatchString(v) && strings.Contains(v, " "):
		return CategoryShadow
	case fontGeneric.MatchString(strings.ToLower(v)) || strings.ContainsAny(v, `"'`) && strings.Contains(v, ","):
		return CategoryFont
	}

	for _, kw := range categoryKeywords {
		if kw.pattern.MatchString(n) {
			if kw.category == CategoryZIndex && v != "" && !integerOnly.MatchString(v) && !strings.HasPrefix(v, "$") {
				continue
			}
			return kw.category
		}
	}
	return CategoryUnknown
}

// Kebab converts camelCase, snake_case and dotted names to kebab-case.
func Kebab(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range strings.TrimLeft(s, "$-") {
		switch {
		case r == '_' || r == '.' || r == ' ' || r == '-' || r == ':':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			prevLower = true
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLower = false
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Camel converts kebab-case or snake_case to camelCase. Already camelCased
// input is returned unchanged.
func Camel(s string) string {
	s = strings.TrimLeft(s, "$-")
	var b strings.Builder
	upper := false
	for i, r := range s {
		if r == '-' || r == '_' || r == ' ' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		if i == 0 {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
