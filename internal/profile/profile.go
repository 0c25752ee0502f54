// Package profile looks up participant profiles through the response cache.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/tourchat/internal/cache"
	"go.uber.org/zap"
)

// Profile is the public profile of a guide or traveller.
type Profile struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	AvatarURL  string   `json:"avatarUrl,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	IsVerified bool     `json:"isVerified"`
	Languages  []string `json:"languages,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	ToursCount int      `json:"toursCount,omitempty"`
}

// Source fetches a profile from the network.
type Source interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// Service serves profiles from the cache and falls back to the network.
type Service struct {
	src    Source
	cache  *cache.Cache
	logger *zap.Logger
}

// NewService creates a profile service.
func NewService(src Source, c *cache.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{src: src, cache: c, logger: logger}
}

func cacheKey(userID string) string {
	return "profile_" + userID
}

// Get returns the profile of userID, fetching it at most once per TTLMedium.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, fmt.Errorf("profile: empty user id")
	}
	return cache.GetOrFetch(ctx, s.cache, cacheKey(userID), func(ctx context.Context) (Profile, error) {
		s.logger.Debug("fetching profile", zap.String("user_id", userID))
		p, err := s.src.GetProfile(ctx, userID)
		if err != nil {
			return Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
		}
		return p, nil
	}, cache.TTLMedium)
}

// Invalidate drops the cached profile of userID.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	s.cache.Remove(ctx, cacheKey(userID))
}
