package models

import "testing"

func testGroup() *Group {
	return &Group{
		ID:        "group-1",
		Name:      "Engineering",
		CreatorID: "admin-1",
		Members: []Membership{
			{UserID: "admin-1", CanSendMessages: false, CanCall: false},
			{UserID: "member-1", CanSendMessages: true, CanCall: true},
			{UserID: "member-2", CanSendMessages: false, CanCall: false},
		},
	}
}

func TestCreatorIsAlwaysPrivileged(t *testing.T) {
	group := testGroup()

	// Stored flags for the creator are false; they must not matter.
	if !group.IsAdmin("admin-1") {
		t.Fatalf("expected creator to be admin")
	}
	if !group.CanSend("admin-1") {
		t.Fatalf("expected creator to send regardless of stored flags")
	}
	if !group.CanCall("admin-1") {
		t.Fatalf("expected creator to call regardless of stored flags")
	}
}

func TestMemberFlagsRespected(t *testing.T) {
	group := testGroup()

	if !group.CanSend("member-1") || !group.CanCall("member-1") {
		t.Fatalf("expected member-1 to have send and call permission")
	}
	if group.CanSend("member-2") || group.CanCall("member-2") {
		t.Fatalf("expected member-2 flags to deny send and call")
	}
}

func TestNonMemberDefaultsToFalse(t *testing.T) {
	group := testGroup()

	if group.IsAdmin("stranger") {
		t.Fatalf("stranger must not be admin")
	}
	if group.CanSend("stranger") || group.CanCall("stranger") {
		t.Fatalf("stranger must not send or call")
	}
	if group.CanSend("") {
		t.Fatalf("empty user id must not send")
	}
}

func TestAdminOnlyMessagingOverridesMemberFlag(t *testing.T) {
	group := testGroup()
	group.AdminOnlyMessaging = true

	if group.CanSend("member-1") {
		t.Fatalf("policy must override member-1's individual send flag")
	}
	if !group.CanSend("admin-1") {
		t.Fatalf("policy must not restrict the creator")
	}
	// Calling is not governed by the messaging policy.
	if !group.CanCall("member-1") {
		t.Fatalf("policy must not affect call permission")
	}
}
