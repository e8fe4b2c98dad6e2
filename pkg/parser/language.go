package parser

import (
	"path/filepath"
	"strings"
)

// Language is a grammar the extractor can parse.
type Language int

const (
	// LanguageCSS covers stylesheets and inline style blocks.
	LanguageCSS Language = iota
	// LanguageJavaScript covers page scripts scanned for theme hints.
	LanguageJavaScript
	LanguageUnknown
)

func (l Language) String() string {
	switch l {
	case LanguageCSS:
		return "css"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// DetectLanguage maps a file path or URL path to a grammar.
func DetectLanguage(filePath string) Language {
	if i := strings.IndexAny(filePath, "?#"); i >= 0 {
		filePath = filePath[:i]
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".css":
		return LanguageCSS
	case ".js", ".mjs", ".cjs", ".jsx":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// DetectContentType maps an HTTP Content-Type to a grammar.
func DetectContentType(contentType string) Language {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/css"):
		return LanguageCSS
	case strings.Contains(ct, "javascript"), strings.Contains(ct, "ecmascript"):
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// ParseLanguageString converts a language name to a Language.
func ParseLanguageString(lang string) Language {
	switch strings.ToLower(lang) {
	case "css":
		return LanguageCSS
	case "javascript", "js":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// SupportedLanguages returns every parseable language.
func SupportedLanguages() []Language {
	return []Language{LanguageCSS, LanguageJavaScript}
}
