package venice

import (
	"context"
	"net/http"
	"time"
)

const charactersPath = "/characters"

// CharacterStats are usage statistics for a public character.
type CharacterStats struct {
	Imports int `json:"imports"`
}

// Character is one public character usable via
// VeniceParameters.Character.
type Character struct {
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Adult       bool           `json:"adult"`
	Stats       CharacterStats `json:"stats"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ListCharacters returns the public character catalog.
func (c *Client) ListCharacters(ctx context.Context) ([]Character, error) {
	var envelope listEnvelope[Character]
	if err := c.do(ctx, &apiRequest{
		method: http.MethodGet,
		path:   charactersPath,
	}, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
