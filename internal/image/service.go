package image

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/flashpix/internal/config"
)

// ErrNoProviders is returned when no image provider has an API key configured.
var ErrNoProviders = errors.New("no image search provider configured (set a Pixabay, Bing or Unsplash key)")

const (
	breakerTrips   = 3
	breakerTimeout = 60 * time.Second
)

// Service searches the configured providers in order. Later providers only
// fill the slots earlier ones left empty. Every provider sits behind its own
// circuit breaker so a dead API stops being called for a while.
type Service struct {
	providers     []guardedProvider
	filter        QualityFilter
	minResolution int
}

type guardedProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// NewService builds a service from settings. Providers without a key are
// left out; the order is Pixabay, Bing, Unsplash.
func NewService(s config.Settings) *Service {
	var providers []Provider
	if s.PixabayKey != "" {
		providers = append(providers, NewPixabayClient(s.PixabayKey))
	}
	if s.BingKey != "" {
		providers = append(providers, NewBingClient(s.BingKey, KeywordEnhancer{
			Subjects:  s.Subjects,
			PreferCC0: s.Quality.PreferCC0,
		}))
	}
	if s.UnsplashKey != "" {
		if u, err := NewUnsplashClient(s.UnsplashKey); err == nil {
			providers = append(providers, u)
		}
	}
	return NewServiceWithProviders(s.Quality, providers...)
}

// NewServiceWithProviders builds a service over an explicit provider chain.
func NewServiceWithProviders(q config.ImageQuality, providers ...Provider) *Service {
	svc := &Service{
		filter:        NewQualityFilter(q),
		minResolution: q.MinResolution,
	}
	for _, p := range providers {
		svc.providers = append(svc.providers, guardedProvider{
			provider: p,
			breaker:  newBreaker(p.Name()),
		})
	}
	return svc
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("image provider circuit changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})
}

// Providers returns the names of the configured providers in search order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.provider.Name())
	}
	return names
}

// Search returns up to max candidates for term. An empty slice with a nil
// error means the providers answered but found nothing usable. An error is
// only returned when every provider that was tried failed.
func (s *Service) Search(ctx context.Context, term string, max int) ([]Candidate, error) {
	term = strings.TrimSpace(term)
	if term == "" || max <= 0 {
		return nil, nil
	}
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	var (
		results  []Candidate
		lastErr  error
		answered bool
	)
	for _, gp := range s.providers {
		remaining := max - len(results)
		if remaining <= 0 {
			break
		}

		opts := DefaultSearchOptions(term, remaining, s.minResolution)
		out, err := gp.breaker.Execute(func() (interface{}, error) {
			return gp.provider.Search(ctx, opts)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("image provider failed", "provider", gp.provider.Name(), "term", term, "error", err)
			lastErr = err
			continue
		}

		answered = true
		found, _ := out.([]Candidate)
		results = append(results, found...)
	}

	if !answered {
		return nil, fmt.Errorf("image search failed: %w", lastErr)
	}

	filtered := s.filter.Apply(results)
	if len(filtered) > max {
		filtered = filtered[:max]
	}
	slog.Debug("image search finished", "term", term, "found", len(results), "kept", len(filtered))
	return filtered, nil
}
