package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/config"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

const (
	directRetries = 3
	proxyRetries  = 10

	// Responses below this size are treated as failed fetches; some feed
	// hosts return empty 200s when rate limiting.
	minBodySize = 10

	feedAcceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.7"
)

// userAgents is the fixed rotation pool for outbound feed requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Entry is a normalized feed item produced by a fetch.
type Entry struct {
	Title         string
	Link          string
	Summary       string
	ThumbnailURL  string
	PublishedDate *time.Time
}

type FeedFetcher struct {
	logger  *zap.Logger
	parser  *gofeed.Parser
	direct  *http.Client
	proxied *http.Client
}

func NewFeedFetcher(cfg *config.FetcherConfig, logger *zap.Logger) (*FeedFetcher, error) {
	timeout, err := time.ParseDuration(cfg.FeedTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid feed timeout %q: %w", cfg.FeedTimeout, err)
	}

	f := &FeedFetcher{
		logger: logger,
		parser: gofeed.NewParser(),
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
				Proxy: http.ProxyURL(proxyURL),
				// Certificates are unreliable through the proxy; it is
				// expected to terminate TLS itself.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	return f, nil
}

// FetchFeed retrieves and parses a remote feed, retrying transient failures
// within a fixed budget. It does not mutate feed state; that is the caller's
// responsibility.
func (f *FeedFetcher) FetchFeed(ctx context.Context, feedURL string, useProxy bool) ([]Entry, error) {
	client := f.direct
	attempts := directRetries
	if useProxy {
		if f.proxied == nil {
			return nil, errs.ExternalFetch("proxy requested but no proxy configured", nil)
		}
		client = f.proxied
		attempts = proxyRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, errs.ExternalFetch("feed fetch cancelled", ctx.Err())
			case <-time.After(retryDelay()):
			}
		}

		entries, err := f.fetchOnce(ctx, client, feedURL)
		if err == nil {
			return entries, nil
		}
		lastErr = err
		f.logger.Debug("Feed fetch attempt failed",
			zap.String("url", feedURL),
			zap.Int("attempt", attempt),
			zap.Bool("use_proxy", useProxy),
			zap.Error(err))
	}

	return nil, errs.ExternalFetch(
		fmt.Sprintf("feed fetch failed after %d attempts", attempts), lastErr)
}

func (f *FeedFetcher) fetchOnce(ctx context.Context, client *http.Client, feedURL string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", feedAcceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) < minBodySize {
		return nil, fmt.Errorf("response body too small (%d bytes)", len(body))
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed parsed but contained no entries")
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, normalizeItem(item))
	}
	return entries, nil
}

func normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		Title:         item.Title,
		Link:          item.Link,
		Summary:       item.Description,
		PublishedDate: item.PublishedParsed,
	}
	if entry.PublishedDate == nil {
		entry.PublishedDate = item.UpdatedParsed
	}

	if item.Image != nil {
		entry.ThumbnailURL = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if enc != nil && len(enc.Type) >= 6 && enc.Type[:6] == "image/" {
				entry.ThumbnailURL = enc.URL
				break
			}
		}
	}

	return entry
}

// retryDelay returns a randomized 0.5-2s backoff between attempts.
func retryDelay() time.Duration {
	return time.Duration(500+rand.Intn(1500)) * time.Millisecond
}
