package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eshaffer321/calimoto-go/internal/transport"
	"github.com/eshaffer321/calimoto-go/internal/types"
	"golang.org/x/sync/errgroup"
)

var (
	scriptSrcPattern = regexp.MustCompile(`<script[^>]+src=["']([^"']+)["']`)
	keyPattern       = regexp.MustCompile(`appId\s*:\s*['"]([^'"]+)['"]\s*,\s*key\s*:\s*['"]([^'"]+)['"]`)
)

// Fetcher performs plain GET requests
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
}

// KeyExtractor discovers the Parse application id and JavaScript key the web
// app ships in its bundles. The result is kept for the lifetime of the
// extractor.
type KeyExtractor struct {
	webBaseURL string
	fetcher    Fetcher
	logger     types.Logger

	mu    sync.Mutex
	creds types.Credentials
}

// NewKeyExtractor creates an extractor scraping webBaseURL
func NewKeyExtractor(webBaseURL string, fetcher Fetcher, logger types.Logger) *KeyExtractor {
	if webBaseURL == "" {
		webBaseURL = types.DefaultWebBaseURL
	}
	return &KeyExtractor{
		webBaseURL: strings.TrimRight(webBaseURL, "/"),
		fetcher:    fetcher,
		logger:     logger,
	}
}

// Credentials returns the cached keys without triggering discovery
func (k *KeyExtractor) Credentials() types.Credentials {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.creds
}

// Discover returns the cached keys, scraping them first if none are cached.
// Concurrent callers wait for a single discovery.
func (k *KeyExtractor) Discover(ctx context.Context) (types.Credentials, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.creds.Empty() {
		return k.creds, nil
	}

	creds, err := k.discover(ctx)
	if err != nil {
		return types.Credentials{}, err
	}
	k.creds = creds
	return creds, nil
}

func (k *KeyExtractor) discover(ctx context.Context) (types.Credentials, error) {
	pageURL := k.webBaseURL + types.DiscoveryPath

	if k.logger != nil {
		k.logger.Info("Extracting Parse keys", "page", pageURL)
	}

	resp, err := k.fetcher.Get(ctx, pageURL)
	if err != nil {
		return types.Credentials{}, &types.DiscoveryError{URL: pageURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return types.Credentials{}, &types.DiscoveryError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	scripts, err := ScriptURLs(string(resp.Body), k.webBaseURL)
	if err != nil {
		return types.Credentials{}, &types.DiscoveryError{URL: pageURL, Err: err}
	}
	if len(scripts) == 0 {
		return types.Credentials{}, &types.DiscoveryError{URL: pageURL, Reason: "no same-origin scripts on page"}
	}

	creds, source, ok := k.scan(ctx, scripts)
	if !ok {
		if err := ctx.Err(); err != nil {
			return types.Credentials{}, &types.DiscoveryError{URL: pageURL, Err: err}
		}
		return types.Credentials{}, &types.DiscoveryError{
			URL:    pageURL,
			Reason: fmt.Sprintf("no key pattern in %d scripts", len(scripts)),
		}
	}

	if k.logger != nil {
		k.logger.Info("Parse keys extracted", "script", source, "scanned", len(scripts))
	}
	return creds, nil
}

// scan fetches every script concurrently and returns the first key pair
// found. Once a match is recorded the remaining fetches are skipped or
// cancelled; a script that was already downloaded may still be searched,
// but only the first match is kept.
func (k *KeyExtractor) scan(ctx context.Context, scripts []string) (types.Credentials, string, bool) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		found  atomic.Bool
		once   sync.Once
		creds  types.Credentials
		source string
	)

	g, gctx := errgroup.WithContext(scanCtx)
	for _, scriptURL := range scripts {
		scriptURL := scriptURL
		g.Go(func() error {
			if found.Load() {
				return nil
			}

			resp, err := k.fetcher.Get(gctx, scriptURL)
			if err != nil {
				if k.logger != nil && !found.Load() {
					k.logger.Debug("Script fetch failed", "url", scriptURL, "error", err)
				}
				return nil
			}
			if resp.StatusCode != http.StatusOK || found.Load() {
				return nil
			}

			appID, key, ok := MatchKeys(resp.Body)
			if !ok {
				return nil
			}

			once.Do(func() {
				creds = types.Credentials{ApplicationID: appID, ClientKey: key}
				source = scriptURL
				found.Store(true)
				cancel()
			})
			return nil
		})
	}
	_ = g.Wait()

	return creds, source, found.Load()
}

// MatchKeys searches a script body for the appId/key pair
func MatchKeys(body []byte) (appID, key string, ok bool) {
	m := keyPattern.FindSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return string(m[1]), string(m[2]), true
}

// ScriptURLs extracts the script sources of an HTML page that live on
// origin, resolving root-relative paths. The result is de-duplicated and
// keeps page order.
func ScriptURLs(html, origin string) ([]string, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range scriptSrcPattern.FindAllStringSubmatch(html, -1) {
		src := strings.TrimSpace(m[1])

		var abs string
		switch {
		case strings.HasPrefix(src, "//"):
			// protocol-relative, treated like any absolute URL below
			u, err := base.Parse(src)
			if err != nil || !sameOrigin(base, u) {
				continue
			}
			abs = u.String()
		case strings.HasPrefix(src, "/"):
			abs = strings.TrimRight(origin, "/") + src
		default:
			u, err := url.Parse(src)
			if err != nil || !u.IsAbs() || !sameOrigin(base, u) {
				continue
			}
			abs = u.String()
		}

		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out, nil
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
