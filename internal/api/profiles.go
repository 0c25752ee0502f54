package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/matheus3301/tourchat/internal/profile"
)

type profileWire struct {
	ID         FlexID   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	AvatarURL  string   `json:"avatarUrl"`
	Bio        string   `json:"bio"`
	IsVerified bool     `json:"isVerified"`
	Languages  []string `json:"languages"`
	Rating     float64  `json:"rating"`
	ToursCount int      `json:"toursCount"`
}

// GetProfile returns the public profile of a user or guide.
func (c *Client) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	w, err := call[profileWire](ctx, c, "get profile", http.MethodGet,
		"/users/"+url.PathEscape(userID)+"/profile", nil, nil)
	if err != nil {
		return profile.Profile{}, err
	}
	return profile.Profile{
		ID:         w.ID.String(),
		Name:       w.Name,
		Type:       w.Type,
		AvatarURL:  w.AvatarURL,
		Bio:        w.Bio,
		IsVerified: w.IsVerified,
		Languages:  w.Languages,
		Rating:     w.Rating,
		ToursCount: w.ToursCount,
	}, nil
}
