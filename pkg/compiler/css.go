package compiler

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// Container is the id every generated rule is scoped under.
const Container = "#_pi_surveyWidgetContainer"

//go:embed templates
var templateFS embed.FS

var cssTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type perRow struct {
	Count  int
	Width  string
	Margin string
}

type alignment struct {
	Value   string
	Justify string
}

// Fixed answer widths for 1..14 answers per row.
var fixedWidths = []string{
	"86%", "48%", "31.5%", "23%", "18%", "14.5%", "12.25%",
	"10.5%", "9.1%", "8%", "7%", "6.3%", "5.6%", "5.1%",
}

var alignments = []alignment{
	{"left", "flex-start"},
	{"center", "center"},
	{"right", "flex-end"},
	{"space-between", "space-between"},
	{"space-around", "space-around"},
	{"space-evenly", "space-evenly"},
}

func staticCSS(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(fmt.Sprintf("compiler: missing template %s: %v", name, err))
	}
	return string(data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := cssTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// cssEsc keeps a value on one declaration line.
func cssEsc(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
}

// variablesBlock emits registry tokens in registry order, then any other
// theme leaves sorted by path. Empty values are skipped.
func variablesBlock(reg *Registry, theme map[string]any) string {
	var b strings.Builder
	b.WriteString(Container + " {\n")
	emitted := make(map[string]bool)
	write := func(name, value string) {
		if value == "" || emitted[name] {
			return
		}
		emitted[name] = true
		fmt.Fprintf(&b, "  %s: %s;\n", name, cssEsc(value))
	}
	for _, t := range reg.Tokens {
		write(t.CSSVar, getString(theme, t.Path))
	}
	flat := Flatten(theme)
	for _, path := range sortedKeys(flat) {
		if _, ok := reg.Lookup(path); ok {
			continue
		}
		write(reg.VarName(path), strings.TrimSpace(flat[path]))
	}
	b.WriteString("}")
	return b.String()
}

func baseCSS(theme map[string]any, opts Options) (string, error) {
	radioDisplay, radioAlign := "inline-flex", getString(theme, "answers.textAlignWhenRadioOn")
	if getString(theme, "answers.radioStyle") == "tile" {
		radioDisplay, radioAlign = "none", getString(theme, "answers.textAlignWhenRadioOff")
	}
	base, err := render("base.css.tmpl", struct{ RadioDisplay, RadioAlign string }{radioDisplay, radioAlign})
	if err != nil {
		return "", err
	}
	parts := []string{base}
	if opts.IncludeSliderStyles {
		parts = append(parts, staticCSS("slider.css"))
	}
	if opts.IncludeAllAtOnceStyles {
		parts = append(parts, staticCSS("all_at_once.css"))
	}
	return strings.Join(parts, "\n"), nil
}

func answerLayoutCSS() (string, error) {
	rows := make([]perRow, len(fixedWidths))
	for i, w := range fixedWidths {
		margin := "5px 0.9%"
		if i == 0 {
			margin = "5px 7%"
		}
		rows[i] = perRow{Count: i + 1, Width: w, Margin: margin}
	}
	return render("layout.css.tmpl", struct {
		PerRow     []perRow
		Alignments []alignment
	}{rows, alignments})
}
