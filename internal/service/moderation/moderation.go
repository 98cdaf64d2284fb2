// Package moderation provides the role-gated ban and mute operations, with
// system-message audit trails posted to the general channel.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/store"
)

// Announcer posts audit messages into a channel. The chat hub satisfies this.
type Announcer interface {
	SendSystemMessage(ctx context.Context, actor *core.User, channelID, content string) error
}

// Service provides user moderation business logic.
type Service struct {
	store    store.UserStore
	announce Announcer
	clock    clock.Clock
	log      *zerolog.Logger
}

// New creates a moderation service. announce may be nil to disable audit
// messages.
func New(st store.UserStore, announce Announcer, cl clock.Clock, logger *zerolog.Logger) *Service {
	return &Service{store: st, announce: announce, clock: cl, log: logger}
}

// Ban marks a user banned. Requires moderation privileges; the flag persists
// across sessions until an explicit unban.
func (s *Service) Ban(ctx context.Context, actor *core.User, targetID, reason string) error {
	if err := s.gate(actor, targetID); err != nil {
		return err
	}

	banned := true
	now := s.clock.Now()
	err := s.store.ApplyUser(ctx, targetID, store.UserPatch{
		Banned:    &banned,
		BanReason: &reason,
		BannedBy:  &actor.ID,
		BannedAt:  &now,
	})
	if err != nil {
		return s.wrap("ban", targetID, err)
	}

	s.audit(actor, targetID, fmt.Sprintf("banned a user (reason: %s)", orNone(reason)))
	return nil
}

// Unban clears a user's ban flags.
func (s *Service) Unban(ctx context.Context, actor *core.User, targetID string) error {
	if err := s.gate(actor, targetID); err != nil {
		return err
	}

	if err := s.store.ApplyUser(ctx, targetID, store.UserPatch{ClearBan: true}); err != nil {
		return s.wrap("unban", targetID, err)
	}

	s.audit(actor, targetID, "lifted a ban")
	return nil
}

// Mute silences a user for the given duration. The user keeps reading; only
// sending is blocked, and the block lapses on its own at the deadline.
func (s *Service) Mute(ctx context.Context, actor *core.User, targetID string, d time.Duration, reason string) error {
	if err := s.gate(actor, targetID); err != nil {
		return err
	}
	if d <= 0 {
		return core.Errorf(core.ErrCodeBadRequest, "mute duration must be positive")
	}

	until := s.clock.Now().Add(d)
	err := s.store.ApplyUser(ctx, targetID, store.UserPatch{
		MutedUntil: &until,
		MuteReason: &reason,
		MutedBy:    &actor.ID,
	})
	if err != nil {
		return s.wrap("mute", targetID, err)
	}

	s.audit(actor, targetID, fmt.Sprintf("muted a user for %s (reason: %s)", d, orNone(reason)))
	return nil
}

// Unmute lifts a mute before its deadline.
func (s *Service) Unmute(ctx context.Context, actor *core.User, targetID string) error {
	if err := s.gate(actor, targetID); err != nil {
		return err
	}

	if err := s.store.ApplyUser(ctx, targetID, store.UserPatch{ClearMute: true}); err != nil {
		return s.wrap("unmute", targetID, err)
	}

	s.audit(actor, targetID, "lifted a mute")
	return nil
}

func (s *Service) gate(actor *core.User, targetID string) error {
	if !actor.Role.CanModerateUsers() {
		return core.Errorf(core.ErrCodePermissionDenied, "role %q may not moderate users", actor.Role)
	}
	if actor.ID == targetID {
		return core.Errorf(core.ErrCodeBadRequest, "cannot moderate yourself")
	}
	return nil
}

func (s *Service) wrap(op, targetID string, err error) error {
	if errors.Is(err, core.ErrUserNotFound) {
		return core.Errorf(core.ErrCodeUserNotFound, "user %s not found", targetID)
	}
	return fmt.Errorf("%s %s: %w", op, targetID, err)
}

// audit posts the action to the general channel in the background. Audit is
// best-effort: a failed announcement never undoes the moderation action.
func (s *Service) audit(actor *core.User, targetID, what string) {
	if s.announce == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		content := fmt.Sprintf("%s %s.", actor.DisplayName, what)
		if err := s.announce.SendSystemMessage(ctx, actor, core.ChannelGeneral, content); err != nil {
			s.log.Warn().Err(err).
				Str("actor_id", actor.ID).
				Str("target_id", targetID).
				Msg("moderation audit message failed")
		}
	}()
}

func orNone(reason string) string {
	if reason == "" {
		return "none given"
	}
	return reason
}
