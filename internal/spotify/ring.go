package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// clientEntry is one (credential, proxy, http client, token) tuple —
// the ring's unit of ownership.
type clientEntry struct {
	credential Credential
	client     *resty.Client
	proxy      Proxy
	token      string
}

// Config configures Ring construction.
type Config struct {
	// ClientsFile is the path to clients.csv (required).
	ClientsFile string
	// ProxiesFile is the path to proxies.csv (required iff UseProxies).
	ProxiesFile string
	// UseProxies enables proxy pairing; when false every entry uses a
	// direct (proxy-less) HTTP client.
	UseProxies bool
	// GlobalRPS, if > 0, caps the aggregate request rate across every
	// ring entry via a token-bucket limiter independent of the
	// per-identity 429 cooldown.
	GlobalRPS float64
	// Logger receives ring lifecycle events; defaults to slog.Default().
	Logger *slog.Logger
}

// Ring is a rotating pool of credentialed HTTP identities. Only one
// rotate operation (Sleep.../Refresh...) runs at a time;
// Front calls may run concurrently with each other but not with a
// rotate.
type Ring struct {
	mu      sync.RWMutex
	current clientEntry
	ring    chan clientEntry
	proxies chan Proxy

	useProxies bool
	logger     *slog.Logger
	limiter    *rate.Limiter
}

// NewRing loads credentials (and proxies, if enabled), pairs each
// credential with a proxy, fetches an initial token for every pair, and
// returns the assembled ring. Fails on malformed/empty config files, a
// token POST failure, or zero credentials.
func NewRing(cfg Config) (*Ring, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	creds, err := LoadCredentials(cfg.ClientsFile)
	if err != nil {
		return nil, err
	}

	var proxies []Proxy
	if cfg.UseProxies {
		proxies, err = LoadProxies(cfg.ProxiesFile)
		if err != nil {
			return nil, err
		}
		if len(proxies) == 0 {
			return nil, fmt.Errorf("spotify: proxies enabled but %s has no rows: %w", cfg.ProxiesFile, ErrConfigInvalid)
		}
	}

	n := len(creds)
	entries := make([]clientEntry, 0, n)
	for i, cred := range creds {
		proxy := Proxy{Direct: true}
		if cfg.UseProxies {
			proxy = proxies[i%len(proxies)]
		}

		client, err := newProxiedClient(proxy)
		if err != nil {
			return nil, fmt.Errorf("spotify: building http client for %s: %w", cred.Name, err)
		}

		token, err := retrieveAccessToken(client, cred)
		if err != nil {
			return nil, err
		}

		entries = append(entries, clientEntry{
			credential: cred,
			client:     client,
			proxy:      proxy,
			token:      token,
		})
		logger.Info("spotify: ring entry ready", "name", cred.Name, "proxy", proxy.String())
	}

	current := entries[len(entries)-1]
	rest := entries[:len(entries)-1]

	r := &Ring{
		current:    current,
		ring:       make(chan clientEntry, n*2),
		proxies:    make(chan Proxy, (n+len(proxies))*2),
		useProxies: cfg.UseProxies,
		logger:     logger,
	}
	if cfg.GlobalRPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), 1)
	}

	for _, e := range rest {
		if err := r.pushRing(e); err != nil {
			return nil, err
		}
	}

	// Only proxies not used in the initial N pairings start free — a
	// proxy paired with a client entry must not also sit in the free
	// queue, or a later refresh could hand it out twice.
	if cfg.UseProxies && len(proxies) > n {
		for _, p := range proxies[n:] {
			if err := r.pushProxy(p); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

func newProxiedClient(proxy Proxy) (*resty.Client, error) {
	client := resty.New().SetTimeout(15 * time.Second)
	if !proxy.Direct {
		client.SetProxy("http://" + proxy.String())
	}
	return client, nil
}

func (r *Ring) pushRing(e clientEntry) error {
	select {
	case r.ring <- e:
		return nil
	default:
		return fmt.Errorf("spotify: ring push: %w", ErrQueueOverflow)
	}
}

func (r *Ring) pushProxy(p Proxy) error {
	select {
	case r.proxies <- p:
		return nil
	default:
		return fmt.Errorf("spotify: proxy queue push: %w", ErrQueueOverflow)
	}
}

// Front returns a handle (http client, bearer token) to the current
// identity. Pure read; never mutates ring state.
func (r *Ring) Front() (*resty.Client, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.client, r.current.token
}

// WaitGlobalLimit blocks until the optional global rate limiter admits
// another request. No-op if GlobalRPS was unset.
func (r *Ring) WaitGlobalLimit(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// SleepFrontAndGetNext takes the current identity out of service for
// secs seconds (the provider's Retry-After window) without blocking any
// other worker's Front calls once rotation completes: a timer goroutine
// returns the sleeping entry to the ring queue after the cooldown, and
// current is atomically replaced by popping the next queued entry.
func (r *Ring) SleepFrontAndGetNext(secs int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sleeping := r.current
	r.logger.Info("spotify: cooling down identity", "name", sleeping.credential.Name, "seconds", secs)

	go func() {
		time.Sleep(time.Duration(secs) * time.Second)
		if err := r.pushRing(sleeping); err != nil {
			r.logger.Error("spotify: returning cooled-down identity to ring", "name", sleeping.credential.Name, "err", err)
		}
	}()

	r.current = <-r.ring
	r.logger.Info("spotify: switched to identity", "name", r.current.credential.Name)
}

// RefreshFrontAndGetNext re-pairs the current identity with a new proxy
// and fetches a new token, then rotates to the next queued entry
// (called on 401). A failed token POST during refresh is non-fatal: the
// new entry keeps the stale token so the next request trips another 401
// and retries.
func (r *Ring) RefreshFrontAndGetNext() {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current
	r.logger.Info("spotify: refreshing identity", "name", old.credential.Name)

	newProxy := Proxy{Direct: true}
	if r.useProxies {
		if err := r.pushProxy(old.proxy); err != nil {
			r.logger.Error("spotify: returning proxy to free queue", "err", err)
		}
		newProxy = <-r.proxies
	}

	client, err := newProxiedClient(newProxy)
	token := old.token
	if err != nil {
		r.logger.Error("spotify: building refreshed http client, keeping old client", "name", old.credential.Name, "err", err)
		client = old.client
		newProxy = old.proxy
	} else if tok, tokErr := retrieveAccessToken(client, old.credential); tokErr != nil {
		r.logger.Warn("spotify: token refresh failed, retaining stale token", "name", old.credential.Name, "err", tokErr)
	} else {
		token = tok
	}

	refreshed := clientEntry{
		credential: old.credential,
		client:     client,
		proxy:      newProxy,
		token:      token,
	}
	if err := r.pushRing(refreshed); err != nil {
		r.logger.Error("spotify: pushing refreshed identity to ring", "err", err)
	}

	r.current = <-r.ring
	r.logger.Info("spotify: switched to identity", "name", r.current.credential.Name)
}
