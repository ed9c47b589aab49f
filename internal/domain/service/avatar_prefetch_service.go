package service

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"matchchat/pkg/logger"
)

const (
	prefetchParallelism = 2
	maxWarmBytes        = 4 << 20
)

// AvatarPrefetchService warms avatar URLs by fetching them once, so the CDN
// cache is hot before the chat list renders. URLs warmed within ttl are
// skipped. Only https URLs on an allowed host are fetched; with no hosts
// configured nothing is.
type AvatarPrefetchService struct {
	client  *http.Client
	limiter *rate.Limiter
	ttl     time.Duration
	hosts   map[string]struct{}
	now     func() time.Time
	log     *zap.SugaredLogger

	mu     sync.Mutex
	warmed map[string]time.Time
}

func NewAvatarPrefetchService(rps float64, ttl time.Duration, allowedHosts []string) *AvatarPrefetchService {
	if rps <= 0 {
		rps = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, host := range allowedHosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			hosts[host] = struct{}{}
		}
	}
	return &AvatarPrefetchService{
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		ttl:     ttl,
		hosts:   hosts,
		now:     time.Now,
		log:     logger.Named("avatar-prefetch"),
		warmed:  make(map[string]time.Time),
	}
}

// Prefetch fetches urls it has not warmed recently. It blocks until done or
// ctx ends; failures are logged and retried on a later call.
func (s *AvatarPrefetchService) Prefetch(ctx context.Context, urls []string) {
	pending := s.claim(urls)
	if len(pending) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchParallelism)
	for _, avatar := range pending {
		avatar := avatar
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				s.release(avatar)
				return nil
			}
			if err := s.warm(gctx, avatar); err != nil {
				s.log.Debugw("Avatar prefetch failed", "url", avatar, "error", err)
				s.release(avatar)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *AvatarPrefetchService) warm(ctx context.Context, avatar string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatar, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, maxWarmBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// claim marks urls as in flight and returns the ones that need fetching.
// Entries older than ttl are dropped on the way.
func (s *AvatarPrefetchService) claim(urls []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for avatar, at := range s.warmed {
		if now.Sub(at) >= s.ttl {
			delete(s.warmed, avatar)
		}
	}

	pending := make([]string, 0, len(urls))
	for _, avatar := range urls {
		if !s.allowed(avatar) {
			continue
		}
		if at, ok := s.warmed[avatar]; ok && now.Sub(at) < s.ttl {
			continue
		}
		s.warmed[avatar] = now
		pending = append(pending, avatar)
	}
	return pending
}

func (s *AvatarPrefetchService) allowed(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	_, ok := s.hosts[strings.ToLower(u.Hostname())]
	return ok
}

func (s *AvatarPrefetchService) release(avatar string) {
	s.mu.Lock()
	delete(s.warmed, avatar)
	s.mu.Unlock()
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected status " + http.StatusText(e.code)
}
