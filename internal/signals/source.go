// Package signals produces trading signals from external text providers.
// Providers are consulted independently with a short timeout each; a
// provider that errors or times out contributes nothing. Gathering never
// fails as a whole.
package signals

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/domain"
)

const (
	providerTimeout = 5 * time.Second
	maxBodyBytes    = 512 * 1024
)

// TextProvider is one external source of raw text.
type TextProvider interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
}

// HTTPProvider fetches text from a single HTTP endpoint.
type HTTPProvider struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPProvider creates a provider for the given endpoint.
func NewHTTPProvider(name, url string) *HTTPProvider {
	return &HTTPProvider{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: providerTimeout},
	}
}

// Name returns the provider identifier used in logs.
func (p *HTTPProvider) Name() string { return p.name }

// Fetch retrieves the provider's current text body.
func (p *HTTPProvider) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", p.name, err)
	}
	req.Header.Set("User-Agent", "harrier/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed for %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, p.name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body from %s: %w", p.name, err)
	}

	return string(body), nil
}

// DefaultProviders returns the built-in provider set.
func DefaultProviders() []TextProvider {
	return []TextProvider{
		NewHTTPProvider("cryptopanic", "https://cryptopanic.com/news/rss/"),
		NewHTTPProvider("cointelegraph", "https://cointelegraph.com/rss"),
	}
}

// Source turns provider text into signals.
type Source struct {
	providers []TextProvider
	log       zerolog.Logger
}

// NewSource creates a signal source over the given providers.
func NewSource(providers []TextProvider, log zerolog.Logger) *Source {
	return &Source{
		providers: providers,
		log:       log.With().Str("component", "signals").Logger(),
	}
}

// Gather consults every provider concurrently and returns the qualifying
// signals, at most one per provider, in provider order. Provider failures
// are skipped; an empty batch is a normal result.
func (s *Source) Gather(ctx context.Context) []domain.Signal {
	results := make([]*domain.Signal, len(s.providers))

	var wg sync.WaitGroup
	for i, provider := range s.providers {
		wg.Add(1)
		go func(i int, provider TextProvider) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, providerTimeout)
			defer cancel()

			text, err := provider.Fetch(fetchCtx)
			if err != nil {
				s.log.Debug().Err(err).Str("provider", provider.Name()).Msg("Provider skipped")
				return
			}

			if sig, ok := extractSignal(text); ok {
				s.log.Info().
					Str("provider", provider.Name()).
					Str("ticker", sig.Ticker).
					Float64("strength", sig.Strength).
					Msg("Signal extracted")
				results[i] = &sig
			}
		}(i, provider)
	}
	wg.Wait()

	out := make([]domain.Signal, 0, len(results))
	for _, sig := range results {
		if sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}
