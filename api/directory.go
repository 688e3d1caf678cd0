package api

import (
	"context"
	"fmt"
	"net/url"

	"chatbox/channel"
	"chatbox/models"
)

type wireUser struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	PublicKey string `json:"publicKey"`
	LastSeen  int64  `json:"lastSeen"`
}

// ListUsers fetches the contact directory.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var wire []wireUser
	if err := c.do(ctx, "GET", "/api/users", nil, &wire); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(wire))
	for _, u := range wire {
		users = append(users, models.User{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PublicKeyPEM: u.PublicKey,
			LastSeen:     u.LastSeen,
		})
	}
	return users, nil
}

// PrivateHistory fetches the full direct-conversation history with one peer.
// Entries are returned in service wire format; the caller passes each
// through the decryption layer before installing them.
func (c *Client) PrivateHistory(ctx context.Context, peerID string) ([]channel.WireMessage, error) {
	if peerID == "" {
		return nil, fmt.Errorf("peer id is required")
	}

	var history []channel.WireMessage
	path := "/api/messages/private/" + url.PathEscape(peerID)
	if err := c.do(ctx, "GET", path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// GroupHistory fetches the full history of one group conversation.
func (c *Client) GroupHistory(ctx context.Context, groupID string) ([]channel.WireMessage, error) {
	if groupID == "" {
		return nil, fmt.Errorf("group id is required")
	}

	var history []channel.WireMessage
	path := "/api/messages/group/" + url.PathEscape(groupID)
	if err := c.do(ctx, "GET", path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// LastSeen fetches the last-message timestamp per peer, keyed by user id.
func (c *Client) LastSeen(ctx context.Context) (map[string]int64, error) {
	var timestamps map[string]int64
	if err := c.do(ctx, "GET", "/api/messages/last-seen", nil, &timestamps); err != nil {
		return nil, err
	}
	return timestamps, nil
}
