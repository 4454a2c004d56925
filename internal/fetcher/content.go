package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/config"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
	"github.com/funny-ai-box/paraluxflow/pkg/util"
)

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// PageContent is the lightweight extraction of a remote article page.
type PageContent struct {
	Title       string
	HTMLContent string
	TextContent string
}

type ContentFetcher struct {
	logger  *zap.Logger
	direct  *http.Client
	proxied *http.Client
}

func NewContentFetcher(cfg *config.FetcherConfig, logger *zap.Logger) (*ContentFetcher, error) {
	timeout, err := time.ParseDuration(cfg.ContentTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid content timeout %q: %w", cfg.ContentTimeout, err)
	}

	f := &ContentFetcher{
		logger: logger,
		direct: &http.Client{Timeout: timeout},
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", cfg.ProxyURL, err)
		}
		f.proxied = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyURL(proxyURL),
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	return f, nil
}

// GetContentFromURL retrieves a single article page. Unlike feed fetching
// this is a single attempt; the crawl lifecycle handles retries.
func (f *ContentFetcher) GetContentFromURL(ctx context.Context, pageURL string, useProxy bool) (*PageContent, error) {
	client := f.direct
	if useProxy {
		if f.proxied == nil {
			return nil, errs.ExternalFetch("proxy requested but no proxy configured", nil)
		}
		client = f.proxied
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errs.ExternalFetch("failed to create request", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.ExternalFetch("page request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.ExternalFetch(fmt.Sprintf("page returned status %d", resp.StatusCode), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, errs.ExternalFetch(fmt.Sprintf("unsupported content type %q", contentType), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.ExternalFetch("failed to read page body", err)
	}

	html := string(body)
	return &PageContent{
		Title:       extractTitle(html),
		HTMLContent: html,
		TextContent: util.StripHTML(html),
	}, nil
}

// ProxyImage fetches image bytes, preferring the proxy and falling back to a
// direct request on any network failure. It only fails when both paths fail.
func (f *ContentFetcher) ProxyImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	if f.proxied != nil {
		data, mime, err := f.fetchImage(ctx, f.proxied, imageURL)
		if err == nil {
			return data, mime, nil
		}
		f.logger.Debug("Proxied image fetch failed, falling back to direct",
			zap.String("url", imageURL), zap.Error(err))
	}

	data, mime, err := f.fetchImage(ctx, f.direct, imageURL)
	if err != nil {
		return nil, "", errs.ExternalFetch("image fetch failed on both proxy and direct paths", err)
	}
	return data, mime, nil
}

func (f *ContentFetcher) fetchImage(ctx context.Context, client *http.Client, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

func extractTitle(html string) string {
	if m := titlePattern.FindStringSubmatch(html); len(m) > 1 {
		title := strings.TrimSpace(m[1])
		if title != "" {
			return title
		}
	}
	return "unknown title"
}
