package memory

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// SecureLinkManager issues opaque links backed by an in-memory payload map.
type SecureLinkManager struct {
	mu         sync.RWMutex
	baseURL    string
	expiration time.Duration
	payloads   map[string]types.SecureLinkPayload
}

// NewSecureLinkManager provisions a link manager. Links are baseURL joined
// with the route and a token query parameter.
func NewSecureLinkManager(baseURL string, expiration time.Duration) *SecureLinkManager {
	return &SecureLinkManager{
		baseURL:    strings.TrimRight(baseURL, "/"),
		expiration: expiration,
		payloads:   make(map[string]types.SecureLinkPayload),
	}
}

var _ types.SecureLinkManager = (*SecureLinkManager)(nil)

// Generate returns a unique link and stores the merged payloads.
func (s *SecureLinkManager) Generate(route string, payloads ...types.SecureLinkPayload) (string, error) {
	if s == nil {
		return "", errors.New("securelink manager not configured")
	}
	route = strings.Trim(strings.TrimSpace(route), "/")
	if route == "" {
		route = "link"
	}
	token := uuid.New().String()
	merged := make(types.SecureLinkPayload)
	for _, payload := range payloads {
		for key, value := range payload {
			merged[key] = value
		}
	}
	s.mu.Lock()
	s.payloads[token] = merged
	s.mu.Unlock()
	return s.baseURL + "/" + route + "?token=" + token, nil
}

// Validate returns the payload stored for token.
func (s *SecureLinkManager) Validate(token string) (map[string]any, error) {
	if s == nil {
		return nil, errors.New("securelink manager not configured")
	}
	s.mu.RLock()
	payload, ok := s.payloads[token]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New("securelink: unknown token")
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = value
	}
	return out, nil
}

// GetExpiration returns the configured link lifetime.
func (s *SecureLinkManager) GetExpiration() time.Duration {
	if s == nil {
		return 0
	}
	return s.expiration
}
