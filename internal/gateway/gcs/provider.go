package gcs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/printshelf/printshelf/internal/gateway"
)

// ClientTTL bounds how long a gateway built for one access token is
// reused. Expired entries are only superseded, never refreshed in place,
// so a rotated token takes effect once the old entry ages out.
const ClientTTL = 5 * time.Minute

type cachedClient struct {
	gw       gateway.Gateway
	storedAt time.Time
}

// Provider hands out per-token Clients, caching them to avoid rebuilding
// the storage service on every request.
type Provider struct {
	buckets     Buckets
	imageFolder string

	mu      sync.Mutex
	clients map[string]cachedClient
	ttl     time.Duration
	now     func() time.Time

	// newGateway is swapped in tests.
	newGateway func(ctx context.Context, accessToken string) (gateway.Gateway, error)
}

// NewProvider creates a Provider for the given buckets.
func NewProvider(buckets Buckets, imageFolder string) *Provider {
	p := &Provider{
		buckets:     buckets,
		imageFolder: imageFolder,
		clients:     make(map[string]cachedClient),
		ttl:         ClientTTL,
		now:         time.Now,
	}
	p.newGateway = func(ctx context.Context, accessToken string) (gateway.Gateway, error) {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		return New(ctx, ts, p.buckets, p.imageFolder)
	}
	return p
}

// Gateway returns the cached client for accessToken, building a new one if
// none exists or the cached entry is older than the TTL.
func (p *Provider) Gateway(ctx context.Context, accessToken string) (gateway.Gateway, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if entry, ok := p.clients[accessToken]; ok && now.Sub(entry.storedAt) < p.ttl {
		return entry.gw, nil
	}

	gw, err := p.newGateway(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	p.clients[accessToken] = cachedClient{gw: gw, storedAt: now}

	p.prune(now)
	return gw, nil
}

// prune drops expired entries so the map does not grow with every token
// rotation. Caller holds the mutex.
func (p *Provider) prune(now time.Time) {
	for token, entry := range p.clients {
		if now.Sub(entry.storedAt) >= p.ttl {
			delete(p.clients, token)
		}
	}
}
