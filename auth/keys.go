package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/motemen/go-loghttp"
)

// KeySource supplies the public keys tokens are checked against.
type KeySource interface {
	// Keys returns the current key set. With refresh set the source should
	// bypass any cache, it is asked for when a token names an unknown key.
	Keys(ctx context.Context, refresh bool) (jwk.Set, error)
}

// FileKeySource reads a JWKS document from disk.
type FileKeySource struct {
	path string
	mu   sync.Mutex
	set  jwk.Set
}

func NewFileKeySource(path string) (*FileKeySource, error) {
	s := &FileKeySource{path: path}
	if _, err := s.Keys(context.Background(), true); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileKeySource) Keys(_ context.Context, refresh bool) (jwk.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set != nil && !refresh {
		return s.set, nil
	}
	set, err := jwk.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read jwks file %s: %w", s.path, err)
	}
	s.set = set
	return set, nil
}

// RemoteKeySource fetches a JWKS document over HTTP and keeps it for ttl.
type RemoteKeySource struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu        sync.Mutex
	set       jwk.Set
	expiresAt time.Time
}

func NewRemoteKeySource(url string, ttl time.Duration) *RemoteKeySource {
	return &RemoteKeySource{
		url: url,
		ttl: ttl,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: &loghttp.Transport{},
		},
	}
}

func (s *RemoteKeySource) Keys(ctx context.Context, refresh bool) (jwk.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set != nil && !refresh && time.Now().Before(s.expiresAt) {
		return s.set, nil
	}
	set, err := jwk.Fetch(ctx, s.url, jwk.WithHTTPClient(s.client))
	if err != nil {
		return nil, fmt.Errorf("fetch jwks from %s: %w", s.url, err)
	}
	s.set = set
	s.expiresAt = time.Now().Add(s.ttl)
	return set, nil
}
