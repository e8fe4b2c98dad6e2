package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

// Renderer produces a snapshot of one page. Implementations must be safe
// for concurrent use.
type Renderer interface {
	Render(ctx context.Context, pageURL string, scheme Scheme) (*PageSnapshot, error)
}

// HTTPRenderer fetches pages and their subresources over HTTP without
// executing scripts. Computed samples come from inline style attributes.
type HTTPRenderer struct {
	config   HTTPConfig
	targets  []ComputedTarget
	maxLogos int
	client   *http.Client
	sheets   *lru.Cache[string, string]
	logger   *slog.Logger
}

// NewHTTPRenderer creates a renderer. A nil client gets one with
// cfg.Timeout.
func NewHTTPRenderer(cfg HTTPConfig, ext Config, client *http.Client, logger *slog.Logger) (*HTTPRenderer, error) {
	d := DefaultHTTPConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = d.Retries
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = d.UserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = d.MaxBodyBytes
	}
	if cfg.StylesheetCache <= 0 {
		cfg.StylesheetCache = d.StylesheetCache
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	sheets, err := lru.New[string, string](cfg.StylesheetCache)
	if err != nil {
		return nil, fmt.Errorf("failed to create stylesheet cache: %w", err)
	}
	ext = ext.WithDefaults()
	return &HTTPRenderer{
		config:   cfg,
		targets:  ext.ComputedTargets,
		maxLogos: ext.MaxLogosPerPage,
		client:   client,
		sheets:   sheets,
		logger:   logger,
	}, nil
}

// Render fetches pageURL, then its stylesheets and image logos. Failures
// fetching the page itself return an *ExtractionError; subresource
// failures are recorded in the snapshot.
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string, scheme Scheme) (*PageSnapshot, error) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, &ExtractionError{URL: pageURL, Kind: ErrInvalidURL, Err: err, Hint: "use an absolute http(s) URL"}
	}

	body, ctype, err := r.fetch(ctx, pageURL, "text/html,application/xhtml+xml", scheme)
	if err != nil {
		return nil, r.classify(pageURL, err)
	}
	if mt, _, _ := mime.ParseMediaType(ctype); ctype != "" && mt != "text/html" && mt != "application/xhtml+xml" {
		return nil, &ExtractionError{
			URL:  pageURL,
			Kind: ErrContentType,
			Err:  fmt.Errorf("unexpected content type %q", ctype),
			Hint: "the URL must serve an HTML document",
		}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Kind: ErrRender, Err: err}
	}
	page := scanDocument(doc, base, r.targets)

	snap := &PageSnapshot{
		URL:      pageURL,
		Computed: page.computed,
		Scripts:  page.scripts,
		Links:    page.links,
	}
	for _, href := range page.stylesheetHrefs {
		if r.ignored(href) {
			r.logger.Debug("stylesheet ignored", "href", href)
			continue
		}
		text, err := r.stylesheet(ctx, href, scheme)
		if err != nil {
			snap.Errors = append(snap.Errors, fmt.Sprintf("stylesheet %s: %v", href, err))
			continue
		}
		snap.Stylesheets = append(snap.Stylesheets, Stylesheet{Href: href, Text: text})
	}
	for _, text := range page.inlineStyles {
		snap.Stylesheets = append(snap.Stylesheets, Stylesheet{Text: text})
	}

	for _, logo := range page.logos {
		if len(snap.Logos) >= r.maxLogos {
			break
		}
		if logo.Method == LogoImage {
			data, _, err := r.fetch(ctx, logo.Source, "image/*", scheme)
			if err != nil {
				snap.Errors = append(snap.Errors, fmt.Sprintf("logo %s: %v", logo.Source, err))
				continue
			}
			logo.Data = data
		}
		snap.Logos = append(snap.Logos, logo)
	}
	return snap, nil
}

func (r *HTTPRenderer) ignored(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	target := u.Host + u.Path
	for _, pattern := range r.config.IgnoreStylesheets {
		if ok, _ := doublestar.Match(pattern, target); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, u.Path); ok {
			return true
		}
	}
	return false
}

func (r *HTTPRenderer) stylesheet(ctx context.Context, href string, scheme Scheme) (string, error) {
	key := string(scheme) + " " + href
	if text, ok := r.sheets.Get(key); ok {
		return text, nil
	}
	body, _, err := r.fetch(ctx, href, "text/css,*/*;q=0.1", scheme)
	if err != nil {
		return "", err
	}
	text := string(body)
	r.sheets.Add(key, text)
	return text, nil
}

// statusError is a non-2xx response.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.status, http.StatusText(e.status))
}

// fetch GETs target with retries on transport errors and 5xx/429
// responses.
func (r *HTTPRenderer) fetch(ctx context.Context, target, accept string, scheme Scheme) ([]byte, string, error) {
	var (
		body  []byte
		ctype string
	)
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", r.config.UserAgent)
			req.Header.Set("Accept", accept)
			if scheme == SchemeDark {
				req.Header.Set("Sec-CH-Prefers-Color-Scheme", "dark")
			}

			resp, err := r.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				se := &statusError{status: resp.StatusCode}
				if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
					return se
				}
				return retry.Unrecoverable(se)
			}
			data, err := io.ReadAll(io.LimitReader(resp.Body, r.config.MaxBodyBytes))
			if err != nil {
				return err
			}
			body, ctype = data, resp.Header.Get("Content-Type")
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.config.Retries),
		retry.Delay(r.config.RetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, "", err
	}
	return body, ctype, nil
}

// classify maps a page fetch failure to an ExtractionError with a hint.
func (r *HTTPRenderer) classify(pageURL string, err error) *ExtractionError {
	var se *statusError
	if errors.As(err, &se) {
		e := &ExtractionError{URL: pageURL, Kind: ErrStatus, Status: se.status, Err: err}
		switch {
		case se.status == http.StatusForbidden || se.status == http.StatusTooManyRequests:
			e.Hint = "the site blocks automated fetches; try again later or extract from a saved copy"
		case se.status == http.StatusNotFound:
			e.Hint = "check the URL"
		case se.status == http.StatusUnauthorized:
			e.Hint = "the page requires authentication"
		case se.status >= 500:
			e.Hint = "the site is failing; retry later"
		}
		return e
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout() {
		return &ExtractionError{URL: pageURL, Kind: ErrTimeout, Err: err, Hint: "increase the fetch timeout"}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ExtractionError{URL: pageURL, Kind: ErrUnreachable, Err: err, Hint: "check the hostname"}
	}
	if strings.Contains(err.Error(), "unsupported protocol") {
		return &ExtractionError{URL: pageURL, Kind: ErrInvalidURL, Err: err}
	}
	return &ExtractionError{URL: pageURL, Kind: ErrUnreachable, Err: err, Hint: "check network connectivity"}
}
