package models

// Membership records one user's standing inside a group.
type Membership struct {
	UserID          string `json:"user_id"`
	CanSendMessages bool   `json:"can_send_messages"`
	CanCall         bool   `json:"can_call"`
}

// Group is a named conversation with an ordered member list. The creator is
// implicitly fully privileged regardless of stored membership flags.
type Group struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	CreatorID          string       `json:"creator_id"`
	Members            []Membership `json:"members"`
	AdminOnlyMessaging bool         `json:"admin_only_messaging"`
}

// IsAdmin reports whether userID created the group.
func (g *Group) IsAdmin(userID string) bool {
	return userID != "" && userID == g.CreatorID
}

// Member returns the membership record for userID, if any.
func (g *Group) Member(userID string) (Membership, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Membership{}, false
}

// CanSend reports whether userID may send messages in the group. The admin
// always may; the admin-only policy overrides individual member flags.
func (g *Group) CanSend(userID string) bool {
	if g.IsAdmin(userID) {
		return true
	}
	if g.AdminOnlyMessaging {
		return false
	}
	member, ok := g.Member(userID)
	return ok && member.CanSendMessages
}

// CanCall reports whether userID may start a call in the group.
func (g *Group) CanCall(userID string) bool {
	if g.IsAdmin(userID) {
		return true
	}
	member, ok := g.Member(userID)
	return ok && member.CanCall
}
