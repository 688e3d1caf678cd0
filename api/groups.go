package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"chatbox/models"
)

type wireMembership struct {
	UserID          json.RawMessage `json:"userId"`
	CanSendMessages bool            `json:"canSendMessages"`
	CanCall         bool            `json:"canCall"`
}

type wireGroup struct {
	ID                 string           `json:"_id"`
	Name               string           `json:"name"`
	Creator            json.RawMessage  `json:"creator"`
	Members            []wireMembership `json:"members"`
	AdminOnlyMessaging bool             `json:"adminOnlyMessaging"`
}

func (g wireGroup) normalize() models.Group {
	group := models.Group{
		ID:                 g.ID,
		Name:               g.Name,
		CreatorID:          idOf(g.Creator),
		AdminOnlyMessaging: g.AdminOnlyMessaging,
	}
	for _, m := range g.Members {
		group.Members = append(group.Members, models.Membership{
			UserID:          idOf(m.UserID),
			CanSendMessages: m.CanSendMessages,
			CanCall:         m.CanCall,
		})
	}
	return group
}

// ListGroups fetches every group visible to the current user.
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	var wire []wireGroup
	if err := c.do(ctx, "GET", "/api/groups", nil, &wire); err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(wire))
	for _, g := range wire {
		groups = append(groups, g.normalize())
	}
	return groups, nil
}

// CreateGroup creates a group owned by the current user.
func (c *Client) CreateGroup(ctx context.Context, name string) (models.Group, error) {
	if name == "" {
		return models.Group{}, fmt.Errorf("group name is required")
	}

	var wire wireGroup
	body := map[string]string{"name": name}
	if err := c.do(ctx, "POST", "/api/groups", body, &wire); err != nil {
		return models.Group{}, err
	}
	return wire.normalize(), nil
}

// DeleteGroup destroys a group. Admin only, enforced server-side.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	if groupID == "" {
		return fmt.Errorf("group id is required")
	}
	return c.do(ctx, "DELETE", "/api/groups/"+url.PathEscape(groupID), nil, nil)
}

// AddMember adds a user to the group with the given permission flags and
// returns the updated group snapshot.
func (c *Client) AddMember(ctx context.Context, groupID, userID string, canSend, canCall bool) (models.Group, error) {
	if groupID == "" || userID == "" {
		return models.Group{}, fmt.Errorf("group id and user id are required")
	}

	var wire wireGroup
	body := map[string]any{
		"userId":          userID,
		"canSendMessages": canSend,
		"canCall":         canCall,
	}
	path := "/api/groups/" + url.PathEscape(groupID) + "/members"
	if err := c.do(ctx, "PUT", path, body, &wire); err != nil {
		return models.Group{}, err
	}
	return wire.normalize(), nil
}

// RemoveMember removes a user from the group and returns the updated
// snapshot.
func (c *Client) RemoveMember(ctx context.Context, groupID, userID string) (models.Group, error) {
	if groupID == "" || userID == "" {
		return models.Group{}, fmt.Errorf("group id and user id are required")
	}

	var wire wireGroup
	path := "/api/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID)
	if err := c.do(ctx, "DELETE", path, nil, &wire); err != nil {
		return models.Group{}, err
	}
	return wire.normalize(), nil
}

// UpdateMemberPermissions changes one member's flags and returns the updated
// snapshot. Callers must re-evaluate permissions from the returned group,
// never from a cached one.
func (c *Client) UpdateMemberPermissions(ctx context.Context, groupID, userID string, canSend, canCall bool) (models.Group, error) {
	if groupID == "" || userID == "" {
		return models.Group{}, fmt.Errorf("group id and user id are required")
	}

	var wire wireGroup
	body := map[string]any{
		"userId":          userID,
		"canSendMessages": canSend,
		"canCall":         canCall,
	}
	path := "/api/groups/" + url.PathEscape(groupID) + "/permissions"
	if err := c.do(ctx, "PUT", path, body, &wire); err != nil {
		return models.Group{}, err
	}
	return wire.normalize(), nil
}

// SetAdminOnlyMessaging toggles the group-wide policy that restricts
// messaging to the admin.
func (c *Client) SetAdminOnlyMessaging(ctx context.Context, groupID string, enabled bool) (models.Group, error) {
	if groupID == "" {
		return models.Group{}, fmt.Errorf("group id is required")
	}

	var wire wireGroup
	body := map[string]bool{"adminOnlyMessaging": enabled}
	path := "/api/groups/" + url.PathEscape(groupID) + "/policy"
	if err := c.do(ctx, "PUT", path, body, &wire); err != nil {
		return models.Group{}, err
	}
	return wire.normalize(), nil
}
