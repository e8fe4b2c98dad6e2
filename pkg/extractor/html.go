package extractor

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// pageDoc is what a renderer needs from a parsed HTML document before
// fetching subresources.
type pageDoc struct {
	stylesheetHrefs []string
	inlineStyles    []string
	scripts         []string
	links           []string
	logos           []LogoAsset
	computed        []ComputedSample
}

// scanDocument walks the DOM once and collects stylesheet references,
// inline style blocks, inline scripts, same-origin links, logo candidates
// and inline-style samples for the computed targets.
func scanDocument(doc *html.Node, base *url.URL, targets []ComputedTarget) *pageDoc {
	p := &pageDoc{}
	seenLogo := make(map[string]bool)
	seenLink := make(map[string]bool)
	matched := make([]int, len(targets))

	addLogo := func(a LogoAsset) {
		if a.Source == "" || seenLogo[a.Source] {
			return
		}
		seenLogo[a.Source] = true
		p.logos = append(p.logos, a)
	}
	var iconLogos []LogoAsset

	var walk func(n *html.Node, inBrand bool)
	walk = func(n *html.Node, inBrand bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Link:
				rel := strings.ToLower(attr(n, "rel"))
				href := resolve(base, attr(n, "href"))
				switch {
				case hasToken(rel, "stylesheet") && href != "":
					p.stylesheetHrefs = append(p.stylesheetHrefs, href)
				case (hasToken(rel, "icon") || hasToken(rel, "apple-touch-icon")) && href != "":
					iconLogos = append(iconLogos, LogoAsset{Source: href, Method: LogoImage, Alt: rel})
				}
			case atom.Style:
				if t := textContent(n); strings.TrimSpace(t) != "" {
					p.inlineStyles = append(p.inlineStyles, t)
				}
			case atom.Script:
				typ := strings.ToLower(attr(n, "type"))
				body := textContent(n)
				switch {
				case typ == "application/ld+json":
					if logo := jsonLDLogo(body); logo != "" {
						addLogo(LogoAsset{Source: resolve(base, logo), Method: LogoImage, Alt: "json-ld"})
					}
				case attr(n, "src") == "" && strings.TrimSpace(body) != "" && (typ == "" || strings.Contains(typ, "javascript") || typ == "module"):
					p.scripts = append(p.scripts, body)
				}
			case atom.Meta:
				prop := strings.ToLower(attr(n, "property"))
				if prop == "og:logo" {
					addLogo(LogoAsset{Source: resolve(base, attr(n, "content")), Method: LogoImage, Alt: prop})
				}
			case atom.A:
				if href := resolve(base, attr(n, "href")); href != "" && sameOrigin(base, href) && !seenLink[href] {
					seenLink[href] = true
					p.links = append(p.links, href)
				}
			case atom.Img:
				if inBrand || looksLikeLogo(n) {
					src := resolve(base, attr(n, "src"))
					addLogo(LogoAsset{Source: src, Method: LogoImage, Alt: attr(n, "alt")})
				}
			case atom.Svg:
				if inBrand || looksLikeLogo(n) {
					var buf bytes.Buffer
					if err := html.Render(&buf, n); err == nil {
						markup := buf.String()
						key := markup
						if len(key) > 120 {
							key = key[:120]
						}
						if !seenLogo[key] {
							seenLogo[key] = true
							src := markup
							if len(src) > 500 {
								src = src[:500]
							}
							p.logos = append(p.logos, LogoAsset{Source: src, Method: LogoSVG, Markup: markup})
						}
					}
					return
				}
			}

			p.sampleInlineStyle(n, targets, matched)
			inBrand = inBrand || isBrandContainer(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBrand)
		}
	}
	walk(doc, false)

	// og:image and favicons are weak logo signals; keep them last.
	var ogImage string
	forEachElement(doc, func(n *html.Node) {
		if n.DataAtom == atom.Meta && strings.EqualFold(attr(n, "property"), "og:image") && ogImage == "" {
			ogImage = resolve(base, attr(n, "content"))
		}
	})
	if ogImage != "" && len(p.logos) == 0 {
		addLogo(LogoAsset{Source: ogImage, Method: LogoImage, Alt: "og:image"})
	}
	for _, l := range iconLogos {
		addLogo(l)
	}
	return p
}

// sampleInlineStyle records the inline style of n for every computed target
// it matches, up to each target's limit.
func (p *pageDoc) sampleInlineStyle(n *html.Node, targets []ComputedTarget, matched []int) {
	style := attr(n, "style")
	for i, t := range targets {
		if !matchElement(n, t.Selector) {
			continue
		}
		lim := t.Limit
		if lim <= 0 {
			lim = 3
		}
		if matched[i] >= lim {
			continue
		}
		idx := matched[i]
		matched[i]++
		if style == "" {
			continue
		}
		props := t.Properties
		if len(props) == 0 {
			props = DefaultComputedProperties
		}
		decls := parseInlineStyle(style)
		sample := ComputedSample{Selector: t.Selector, SampleIndex: idx, Properties: map[string]string{}}
		for _, prop := range props {
			if v, ok := decls[prop]; ok {
				sample.Properties[prop] = v
			}
		}
		if len(sample.Properties) > 0 {
			p.computed = append(p.computed, sample)
		}
	}
}

func parseInlineStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important"))
		if prop != "" && val != "" {
			out[prop] = val
		}
	}
	return out
}

// matchElement supports the simple selectors used as computed targets:
// tag, .class, #id, tag.class and tag[attr=value].
func matchElement(n *html.Node, selector string) bool {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return false
	}
	var attrKey, attrVal string
	if i := strings.IndexByte(sel, '['); i >= 0 && strings.HasSuffix(sel, "]") {
		inner := sel[i+1 : len(sel)-1]
		sel = sel[:i]
		k, v, _ := strings.Cut(inner, "=")
		attrKey, attrVal = strings.TrimSpace(k), strings.Trim(strings.TrimSpace(v), `"'`)
	}

	tag, rest := sel, ""
	if i := strings.IndexAny(sel, ".#"); i >= 0 {
		tag, rest = sel[:i], sel[i:]
	}
	if tag != "" && !strings.EqualFold(tag, n.Data) {
		return false
	}
	for rest != "" {
		kind := rest[0]
		rest = rest[1:]
		end := strings.IndexAny(rest, ".#")
		if end < 0 {
			end = len(rest)
		}
		name := rest[:end]
		rest = rest[end:]
		switch kind {
		case '.':
			if !hasToken(attr(n, "class"), name) {
				return false
			}
		case '#':
			if attr(n, "id") != name {
				return false
			}
		}
	}
	if attrKey != "" {
		v, ok := lookupAttr(n, attrKey)
		if !ok || attrVal != "" && !strings.EqualFold(v, attrVal) {
			return false
		}
	}
	return true
}

func looksLikeLogo(n *html.Node) bool {
	if _, ok := lookupAttr(n, "data-logo"); ok {
		return true
	}
	for _, k := range []string{"class", "id", "alt", "src", "aria-label"} {
		v := strings.ToLower(attr(n, k))
		if strings.Contains(v, "logo") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(attr(n, "src")), "brand")
}

func isBrandContainer(n *html.Node) bool {
	if n.DataAtom == atom.Header || n.DataAtom == atom.Nav {
		return true
	}
	cls := strings.ToLower(attr(n, "class"))
	id := strings.ToLower(attr(n, "id"))
	return strings.Contains(cls, "logo") || strings.Contains(id, "logo") || hasToken(cls, "brand") || strings.Contains(cls, "navbar-brand")
}

// jsonLDLogo extracts the organization logo URL from JSON-LD.
func jsonLDLogo(body string) string {
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ""
	}
	var find func(v any) string
	find = func(v any) string {
		switch t := v.(type) {
		case map[string]any:
			if logo, ok := t["logo"]; ok {
				switch l := logo.(type) {
				case string:
					return l
				case map[string]any:
					if u, ok := l["url"].(string); ok {
						return u
					}
				}
			}
			for _, k := range []string{"@graph", "publisher", "organization"} {
				if s := find(t[k]); s != "" {
					return s
				}
			}
		case []any:
			for _, item := range t {
				if s := find(item); s != "" {
					return s
				}
			}
		}
		return ""
	}
	return find(doc)
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func forEachElement(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forEachElement(c, fn)
	}
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") ||
		strings.HasPrefix(ref, "mailto:") || strings.HasPrefix(ref, "tel:") || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	abs := base.ResolveReference(u)
	abs.Fragment = ""
	return abs.String()
}

func sameOrigin(base *url.URL, ref string) bool {
	if base == nil {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == base.Scheme && u.Host == base.Host
}
