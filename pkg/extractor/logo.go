package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strings"

	"golang.org/x/net/html"
	_ "golang.org/x/image/webp"

	"github.com/gnana997/themeforge/pkg/colorutil"
)

// Raster sampling parameters.
const (
	sampleWidth       = 64
	minBucketAbsolute = 8
	minBucketShare    = 0.01
	minSaturation     = 0.15
	duplicateDistance = 48
	maxSVGColors      = 6
	minAlpha          = 32
	// maxLogoPixels bounds the decoded size of a raster logo; the body
	// cap only limits compressed bytes.
	maxLogoPixels = 4096 * 4096
)

// ErrLogoTooLarge is returned for raster logos above maxLogoPixels.
var ErrLogoTooLarge = errors.New("logo dimensions exceed pixel budget")

// logoColors samples a palette from one logo asset.
func logoColors(asset LogoAsset, maxColors int) ([]string, error) {
	switch asset.Method {
	case LogoSVG:
		colors := svgColors(asset.Markup)
		if len(colors) > maxColors {
			colors = colors[:maxColors]
		}
		return colors, nil
	case LogoImage:
		if bytes.HasPrefix(bytes.TrimSpace(asset.Data), []byte("<")) {
			return limit(svgColors(string(asset.Data)), maxColors), nil
		}
		colors, err := rasterColors(asset.Data, maxColors)
		if err != nil {
			return nil, err
		}
		// White is almost always the logo background, not a brand color.
		var kept []string
		for _, c := range colors {
			if !logoFilter.MatchString(c) {
				kept = append(kept, c)
			}
		}
		return kept, nil
	default:
		return nil, fmt.Errorf("unknown logo method %q", asset.Method)
	}
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// svgColors collects fill, stroke, stop-color and color values from SVG
// markup, including inline style declarations, in document order.
func svgColors(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(v string) {
		c, ok := colorutil.Parse(v)
		if !ok || c.Alpha == 0 || len(out) >= maxSVGColors {
			return
		}
		hex := c.Hex()
		if !seen[hex] {
			seen[hex] = true
			out = append(out, hex)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "fill", "stroke", "stop-color", "color":
					add(a.Val)
				case "style":
					for _, decl := range strings.Split(a.Val, ";") {
						prop, val, ok := strings.Cut(decl, ":")
						if !ok {
							continue
						}
						switch strings.TrimSpace(strings.ToLower(prop)) {
						case "fill", "stroke", "stop-color", "color":
							add(val)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

type colorBucket struct {
	count         int
	r, g, b       float64
	saturationSum float64
}

// rasterColors decodes an image and returns its dominant saturated colors.
// Pixels are quantized into 4-bit-per-channel buckets; small buckets and
// washed-out greys are skipped, near-duplicates merged.
func rasterColors(data []byte, maxColors int) ([]string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxLogoPixels {
		return nil, fmt.Errorf("decode logo %dx%d: %w", cfg.Width, cfg.Height, ErrLogoTooLarge)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil
	}

	stride := 1
	if bounds.Dx() > sampleWidth {
		stride = (bounds.Dx() + sampleWidth - 1) / sampleWidth
	}

	buckets := make(map[[3]uint8]*colorBucket)
	samples := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			samples++
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16>>8 < minAlpha {
				continue
			}
			// Un-premultiply.
			r := float64(r16) * 255 / float64(a16)
			g := float64(g16) * 255 / float64(a16)
			b := float64(b16) * 255 / float64(a16)
			key := [3]uint8{uint8(r) >> 4, uint8(g) >> 4, uint8(b) >> 4}
			bk := buckets[key]
			if bk == nil {
				bk = &colorBucket{}
				buckets[key] = bk
			}
			bk.count++
			bk.r += r
			bk.g += g
			bk.b += b
			mx := max(r, g, b)
			mn := min(r, g, b)
			if mx > 0 {
				bk.saturationSum += (mx - mn) / mx
			}
		}
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	type candidate struct {
		hex        string
		count      int
		saturation float64
		r, g, b    float64
	}
	minCount := max(minBucketAbsolute, int(float64(samples)*minBucketShare+0.5))
	var ranked []candidate
	var largest candidate
	for _, bk := range buckets {
		n := float64(bk.count)
		c := candidate{
			count:      bk.count,
			saturation: bk.saturationSum / n,
			r:          bk.r / n,
			g:          bk.g / n,
			b:          bk.b / n,
		}
		c.hex = rgbHex(c.r, c.g, c.b)
		if c.count > largest.count || c.count == largest.count && c.hex < largest.hex {
			largest = c
		}
		if c.count >= minCount {
			ranked = append(ranked, c)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].hex < ranked[j].hex
	})

	var picked []candidate
	for _, c := range ranked {
		if c.saturation < minSaturation && c.hex != "#000000" && c.hex != "#ffffff" {
			continue
		}
		dup := false
		for _, p := range picked {
			if abs(c.r-p.r)+abs(c.g-p.g)+abs(c.b-p.b) < duplicateDistance {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		picked = append(picked, c)
		if len(picked) >= maxColors {
			break
		}
	}
	if len(picked) == 0 {
		picked = append(picked, largest)
	}

	out := make([]string, len(picked))
	for i, p := range picked {
		out[i] = p.hex
	}
	return out, nil
}

func rgbHex(r, g, b float64) string {
	clamp := func(v float64) int {
		switch {
		case v < 0:
			return 0
		case v > 255:
			return 255
		}
		return int(v + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(r), clamp(g), clamp(b))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
