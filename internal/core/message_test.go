package core

import (
	"testing"
	"time"
)

func TestToggleReactionAddsThenRemoves(t *testing.T) {
	r := Reaction{Emoji: "👍", UserID: "u1", UserName: "BraveScout7", Timestamp: time.Now()}

	once := ToggleReaction(nil, r)
	if len(once) != 1 {
		t.Fatalf("expected 1 reaction after first toggle, got %d", len(once))
	}

	twice := ToggleReaction(once, r)
	if len(twice) != 0 {
		t.Fatalf("expected toggle pair to restore empty list, got %d", len(twice))
	}
}

func TestToggleReactionDistinguishesUserAndEmoji(t *testing.T) {
	base := []Reaction{
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "🎉", UserID: "u1"},
		{Emoji: "👍", UserID: "u2"},
	}

	got := ToggleReaction(base, Reaction{Emoji: "👍", UserID: "u1"})
	if len(got) != 2 {
		t.Fatalf("expected 2 reactions after removing one, got %d", len(got))
	}
	for _, r := range got {
		if r.UserID == "u1" && r.Emoji == "👍" {
			t.Fatal("toggled reaction still present")
		}
	}

	// Same emoji from a third user appends rather than replacing anyone.
	got = ToggleReaction(got, Reaction{Emoji: "👍", UserID: "u3"})
	if len(got) != 3 {
		t.Fatalf("expected 3 reactions, got %d", len(got))
	}
}

func TestToggleReactionDoesNotMutateInput(t *testing.T) {
	base := []Reaction{
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "🎉", UserID: "u2"},
	}
	_ = ToggleReaction(base, Reaction{Emoji: "👍", UserID: "u1"})
	if base[1].UserID != "u2" {
		t.Fatal("input slice mutated by toggle")
	}
}

func TestMutedRespectsDeadline(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	u := &User{MutedUntil: &future}
	if !u.Muted(now) {
		t.Fatal("user with future deadline should be muted")
	}

	u.MutedUntil = &past
	if u.Muted(now) {
		t.Fatal("elapsed mute must not block the user")
	}

	u.MutedUntil = nil
	if u.Muted(now) {
		t.Fatal("user without a mute deadline should not be muted")
	}
}

func TestDefaultChannelsShapeAndProtection(t *testing.T) {
	channels := DefaultChannels()
	if len(channels) != 9 {
		t.Fatalf("expected 9 default channels, got %d", len(channels))
	}

	seen := map[string]bool{}
	dens := 0
	for _, ch := range channels {
		if seen[ch.ID] {
			t.Fatalf("duplicate default channel id %q", ch.ID)
		}
		seen[ch.ID] = true
		if !ch.Active {
			t.Fatalf("default channel %q is not active", ch.ID)
		}
		if !ProtectedChannel(ch.ID) {
			t.Fatalf("default channel %q is not protected", ch.ID)
		}
		if ch.Category.IsDen() {
			dens++
		}
	}
	if dens != len(Dens()) {
		t.Fatalf("expected %d den channels, got %d", len(Dens()), dens)
	}
	for _, id := range []string{ChannelGeneral, ChannelAnnouncements, ChannelEvents} {
		if !seen[id] {
			t.Fatalf("missing built-in pack channel %q", id)
		}
	}

	if ProtectedChannel("campout-planning") {
		t.Fatal("non-default channel must not be protected")
	}
}
