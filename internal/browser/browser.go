// Package browser extracts the chat backend's session cookie from web browsers.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"

	"github.com/diogo/medimate/internal/models"
)

// SupportedBrowser represents a supported browser type
type SupportedBrowser string

const (
	BrowserAuto     SupportedBrowser = "auto"
	BrowserChrome   SupportedBrowser = "chrome"
	BrowserChromium SupportedBrowser = "chromium"
	BrowserFirefox  SupportedBrowser = "firefox"
	BrowserEdge     SupportedBrowser = "edge"
	BrowserOpera    SupportedBrowser = "opera"
)

// AllSupportedBrowsers returns a list of all supported browsers
func AllSupportedBrowsers() []SupportedBrowser {
	return []SupportedBrowser{
		BrowserChrome,
		BrowserChromium,
		BrowserFirefox,
		BrowserEdge,
		BrowserOpera,
	}
}

// String returns the string representation of the browser
func (b SupportedBrowser) String() string {
	return string(b)
}

// ParseBrowser parses a browser string into a SupportedBrowser
func ParseBrowser(s string) (SupportedBrowser, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BrowserAuto, nil
	case "chrome", "google-chrome":
		return BrowserChrome, nil
	case "chromium":
		return BrowserChromium, nil
	case "firefox", "mozilla", "mozilla-firefox":
		return BrowserFirefox, nil
	case "edge", "microsoft-edge", "msedge":
		return BrowserEdge, nil
	case "opera":
		return BrowserOpera, nil
	default:
		return "", fmt.Errorf("unsupported browser: %s. Supported: chrome, chromium, firefox, edge, opera", s)
	}
}

// ExtractResult contains the result of cookie extraction
type ExtractResult struct {
	Token       string
	BrowserName string
}

// BackendHost returns the cookie domain to search for a backend URL
func BackendHost(backendURL string) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("backend url has no host: %q", backendURL)
	}
	return host, nil
}

// ExtractSessionToken finds the backend session cookie for host in the given browser
func ExtractSessionToken(ctx context.Context, browser SupportedBrowser, host string) (*ExtractResult, error) {
	if browser == BrowserAuto {
		return extractFromAllBrowsers(ctx, host)
	}
	return extractFromBrowser(ctx, browser, host)
}

// extractFromAllBrowsers tries every supported browser in order of popularity
func extractFromAllBrowsers(ctx context.Context, host string) (*ExtractResult, error) {
	browsers := []SupportedBrowser{
		BrowserChrome,
		BrowserFirefox,
		BrowserEdge,
		BrowserChromium,
		BrowserOpera,
	}

	var lastErr error
	for _, browser := range browsers {
		result, err := extractFromBrowser(ctx, browser, host)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("could not find %s cookie for %s in any browser: %w", models.SessionCookieName, host, lastErr)
	}
	return nil, fmt.Errorf("could not find %s cookie for %s in any supported browser", models.SessionCookieName, host)
}

// extractFromBrowser tries all profiles of one browser until it finds the cookie
func extractFromBrowser(ctx context.Context, browser SupportedBrowser, host string) (*ExtractResult, error) {
	stores := kooky.FindAllCookieStores(ctx)

	var matchingStores []kooky.CookieStore
	var browserName string

	for _, store := range stores {
		name := store.Browser()
		if matchesBrowser(name, browser) {
			matchingStores = append(matchingStores, store)
			if browserName == "" {
				browserName = name
			}
		} else {
			_ = store.Close()
		}
	}
	defer func() {
		for _, s := range matchingStores {
			_ = s.Close()
		}
	}()

	if len(matchingStores) == 0 {
		return nil, fmt.Errorf("browser %s not found or no cookie store available", browser)
	}

	var lastErr error
	for _, store := range matchingStores {
		result, err := extractTokenFromStore(ctx, store, browserName, store.Profile(), host)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// matchesBrowser checks if a browser name matches the target browser
func matchesBrowser(browserName string, target SupportedBrowser) bool {
	browserName = strings.ToLower(browserName)

	switch target {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") && !strings.Contains(browserName, "chromium")
	case BrowserChromium:
		return strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserEdge:
		return strings.Contains(browserName, "edge")
	case BrowserOpera:
		return strings.Contains(browserName, "opera")
	default:
		return false
	}
}

// extractTokenFromStore reads the session cookie for host from one store
func extractTokenFromStore(ctx context.Context, store kooky.CookieStore, browserName, profile, host string) (*ExtractResult, error) {
	var found []*kooky.Cookie
	for cookie := range store.TraverseCookies(kooky.Valid, kooky.DomainContains(host)).OnlyCookies() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		found = append(found, cookie)
	}

	displayName := browserName
	if profile != "" {
		displayName = fmt.Sprintf("%s (profile: %s)", browserName, profile)
	}

	token := pickSessionCookie(found, host)
	if token == "" {
		return nil, fmt.Errorf("cookie %s not found in %s. Please ensure you are signed in at %s", models.SessionCookieName, displayName, host)
	}

	return &ExtractResult{Token: token, BrowserName: displayName}, nil
}

// pickSessionCookie returns the session cookie value for host, preferring an
// exact domain match over parent or sibling domains.
func pickSessionCookie(cookies []*kooky.Cookie, host string) string {
	var fallback string
	for _, c := range cookies {
		if c == nil || c.Name != models.SessionCookieName || c.Value == "" {
			continue
		}
		domain := strings.TrimPrefix(c.Domain, ".")
		if strings.EqualFold(domain, host) {
			return c.Value
		}
		if fallback == "" {
			fallback = c.Value
		}
	}
	return fallback
}

// ListAvailableBrowsers returns a list of browsers that have cookie stores
func ListAvailableBrowsers() []string {
	ctx := context.Background()
	stores := kooky.FindAllCookieStores(ctx)
	var browsers []string

	seen := make(map[string]bool)
	for _, store := range stores {
		name := store.Browser()
		if !seen[name] {
			browsers = append(browsers, name)
			seen[name] = true
		}
		_ = store.Close()
	}

	return browsers
}
