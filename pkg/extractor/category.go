package extractor

import (
	"regexp"
	"strings"

	"github.com/gnana997/themeforge/pkg/colorutil"
	"github.com/gnana997/themeforge/pkg/schema"
)

var propertyCategories = map[string]schema.Category{
	"color":            schema.CategoryColor,
	"background-color": schema.CategoryColor,
	"border-color":     schema.CategoryColor,
	"outline-color":    schema.CategoryColor,
	"caret-color":      schema.CategoryColor,
	"accent-color":     schema.CategoryColor,
	"fill":             schema.CategoryColor,
	"stroke":           schema.CategoryColor,
	"font-family":      schema.CategoryFont,
	"font-size":        schema.CategoryFont,
	"font-weight":      schema.CategoryFont,
	"line-height":      schema.CategoryFont,
	"letter-spacing":   schema.CategoryFont,
	"padding":          schema.CategorySpacing,
	"margin":           schema.CategorySpacing,
	"gap":              schema.CategorySpacing,
	"row-gap":          schema.CategorySpacing,
	"column-gap":       schema.CategorySpacing,
	"border-radius":    schema.CategoryRadius,
	"box-shadow":       schema.CategoryShadow,
	"text-shadow":      schema.CategoryShadow,
	"z-index":          schema.CategoryZIndex,
}

var (
	nonAlnum   = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	hintColor  = regexp.MustCompile(`(?i)primary|brand|accent`)
	logoFilter = regexp.MustCompile(`(?i)^#?(ff){3}$`)
)

// categorize assigns a finding category once, at extraction time. Custom
// properties are classified by value shape and then by name; literal
// properties go through the fixed property table.
func categorize(property, value string) schema.Category {
	if strings.HasPrefix(property, "--") {
		return schema.InferCategory(property, value)
	}
	if c, ok := propertyCategories[property]; ok {
		return c
	}
	if property == "background" || property == "border" || property == "outline" {
		if colorutil.IsColor(value) {
			return schema.CategoryColor
		}
		// Shorthands like "1px solid #ddd" carry a color as the last word.
		fields := strings.Fields(value)
		if len(fields) > 0 && colorutil.IsColor(fields[len(fields)-1]) {
			return schema.CategoryColor
		}
		return schema.CategoryUnknown
	}
	return schema.InferCategory(property, value)
}

// normalizeCustomProperty turns "--Brand_Primary" into "brand-primary".
func normalizeCustomProperty(property string) string {
	s := strings.TrimPrefix(property, "--")
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.ToLower(strings.Trim(s, "-"))
}

// normalizeSelectorProperty turns (".btn-primary", "background-color") into
// "btnPrimary.backgroundColor".
func normalizeSelectorProperty(selector, property string) string {
	return camelWords(selector) + "." + camelWords(property)
}

func camelWords(s string) string {
	words := strings.Fields(nonAlnum.ReplaceAllString(s, " "))
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(strings.ToLower(w))
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}
