package extractor

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"
)

// DefaultLocalExcludes are skipped when discovering stylesheets on disk.
var DefaultLocalExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/dist/**",
	"**/*.min.css",
}

// LocalRenderer renders saved sites from disk: an HTML file, a CSS file or
// a directory. Directories contribute index.html when present plus every
// stylesheet below them.
type LocalRenderer struct {
	excludes []string
	targets  []ComputedTarget
	maxLogos int
	logger   *slog.Logger
}

// NewLocalRenderer creates a renderer for file paths and file:// URLs.
func NewLocalRenderer(ext Config, excludes []string, logger *slog.Logger) *LocalRenderer {
	if excludes == nil {
		excludes = DefaultLocalExcludes
	}
	if logger == nil {
		logger = slog.Default()
	}
	ext = ext.WithDefaults()
	return &LocalRenderer{excludes: excludes, targets: ext.ComputedTargets, maxLogos: ext.MaxLogosPerPage, logger: logger}
}

// IsLocalTarget reports whether target names a file path or file:// URL
// rather than an http(s) page.
func IsLocalTarget(target string) bool {
	if strings.HasPrefix(target, "file://") {
		return true
	}
	u, err := url.Parse(target)
	return err != nil || u.Scheme == "" || len(u.Scheme) == 1 // "C:\..." parses with a drive-letter scheme
}

func (r *LocalRenderer) Render(ctx context.Context, target string, _ Scheme) (*PageSnapshot, error) {
	path := strings.TrimPrefix(target, "file://")
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ExtractionError{URL: target, Kind: ErrInvalidURL, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &ExtractionError{URL: target, Kind: ErrUnreachable, Err: err, Hint: "check the path exists"}
	}

	snap := &PageSnapshot{URL: "file://" + filepath.ToSlash(abs)}
	switch {
	case info.IsDir():
		index := filepath.Join(abs, "index.html")
		if _, err := os.Stat(index); err == nil {
			if err := r.renderHTML(ctx, index, snap); err != nil {
				return nil, err
			}
		}
		files, err := DiscoverCSSFiles(abs, r.excludes)
		if err != nil {
			return nil, &ExtractionError{URL: target, Kind: ErrRender, Err: err}
		}
		seen := make(map[string]bool)
		for _, s := range snap.Stylesheets {
			seen[s.Href] = true
		}
		for _, f := range files {
			href := "file://" + filepath.ToSlash(f)
			if seen[href] {
				continue
			}
			data, err := os.ReadFile(f)
			if err != nil {
				snap.Errors = append(snap.Errors, fmt.Sprintf("stylesheet %s: %v", f, err))
				continue
			}
			snap.Stylesheets = append(snap.Stylesheets, Stylesheet{Href: href, Text: string(data)})
		}
		r.logger.Debug("local stylesheets discovered", "root", abs, "files", len(files))

	case strings.EqualFold(filepath.Ext(abs), ".css"):
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, &ExtractionError{URL: target, Kind: ErrUnreachable, Err: err}
		}
		snap.Stylesheets = append(snap.Stylesheets, Stylesheet{Href: snap.URL, Text: string(data)})

	case strings.EqualFold(filepath.Ext(abs), ".html"), strings.EqualFold(filepath.Ext(abs), ".htm"):
		if err := r.renderHTML(ctx, abs, snap); err != nil {
			return nil, err
		}

	default:
		return nil, &ExtractionError{
			URL:  target,
			Kind: ErrContentType,
			Err:  fmt.Errorf("unsupported file type %q", filepath.Ext(abs)),
			Hint: "pass an .html or .css file or a directory",
		}
	}
	return snap, nil
}

func (r *LocalRenderer) renderHTML(ctx context.Context, file string, snap *PageSnapshot) error {
	f, err := os.Open(file)
	if err != nil {
		return &ExtractionError{URL: file, Kind: ErrUnreachable, Err: err}
	}
	defer f.Close()
	doc, err := html.Parse(f)
	if err != nil {
		return &ExtractionError{URL: file, Kind: ErrRender, Err: err}
	}

	base := &url.URL{Scheme: "file", Path: filepath.ToSlash(file)}
	page := scanDocument(doc, base, r.targets)
	snap.Computed = append(snap.Computed, page.computed...)
	snap.Scripts = append(snap.Scripts, page.scripts...)
	for _, l := range page.links {
		if strings.HasSuffix(strings.ToLower(l), ".html") || strings.HasSuffix(strings.ToLower(l), ".htm") {
			snap.Links = append(snap.Links, l)
		}
	}

	for _, href := range page.stylesheetHrefs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := readLocal(href)
		if err != nil {
			snap.Errors = append(snap.Errors, fmt.Sprintf("stylesheet %s: %v", href, err))
			continue
		}
		snap.Stylesheets = append(snap.Stylesheets, Stylesheet{Href: href, Text: string(data)})
	}
	for _, text := range page.inlineStyles {
		snap.Stylesheets = append(snap.Stylesheets, Stylesheet{Text: text})
	}
	for _, logo := range page.logos {
		if len(snap.Logos) >= r.maxLogos {
			break
		}
		if logo.Method == LogoImage {
			data, err := readLocal(logo.Source)
			if err != nil {
				snap.Errors = append(snap.Errors, fmt.Sprintf("logo %s: %v", logo.Source, err))
				continue
			}
			logo.Data = data
		}
		snap.Logos = append(snap.Logos, logo)
	}
	return nil
}

func readLocal(ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("remote resource %s skipped for local render", ref)
	}
	return os.ReadFile(filepath.FromSlash(u.Path))
}

// DiscoverCSSFiles walks rootDir for .css files, applying exclude patterns
// to slash-separated paths relative to rootDir.
func DiscoverCSSFiles(rootDir string, excludes []string) ([]string, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		for _, pattern := range excludes {
			if matched, _ := doublestar.PathMatch(pattern, relPath); matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			// "**/dist/**" should also prune the dist directory itself.
			if d.IsDir() {
				if matched, _ := doublestar.PathMatch(pattern, relPath+"/x"); matched {
					return filepath.SkipDir
				}
			}
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(path), ".css") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// RoutingRenderer sends file paths and file:// URLs to Local and every
// other target to Remote.
type RoutingRenderer struct {
	Remote Renderer
	Local  Renderer
}

func (r RoutingRenderer) Render(ctx context.Context, target string, scheme Scheme) (*PageSnapshot, error) {
	if IsLocalTarget(target) {
		if r.Local == nil {
			return nil, &ExtractionError{URL: target, Kind: ErrInvalidURL, Err: fmt.Errorf("local targets are disabled"), Hint: "use an absolute http(s) URL"}
		}
		return r.Local.Render(ctx, target, scheme)
	}
	if r.Remote == nil {
		return nil, &ExtractionError{URL: target, Kind: ErrInvalidURL, Err: fmt.Errorf("remote targets are disabled"), Hint: "pass a file path"}
	}
	return r.Remote.Render(ctx, target, scheme)
}
