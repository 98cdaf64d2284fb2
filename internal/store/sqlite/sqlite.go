package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/store"
)

// SQLiteStore implements store.Store for SQLite. Message watchers are kept
// in-process: every message mutation recomputes the affected channel window
// and fans the snapshot out to registered subscribers.
type SQLiteStore struct {
	db *sql.DB

	mu        sync.Mutex
	watchers  map[int64]*watcher
	nextWatch int64
}

type watcher struct {
	channelID string
	limit     int
	onChange  func([]*core.Message)
	onError   func(error)

	notify chan struct{}
	done   chan struct{}
	stop   sync.Once
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file; ":memory:" works for tests.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; this also serializes
	// read-modify-write reaction updates.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, watchers: make(map[int64]*watcher)}, nil
}

// NewWithSetup creates a store and runs a setup function after the schema is
// applied. Useful for tests that need fixture rows.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_users (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	photo_url     TEXT NOT NULL DEFAULT '',
	session_id    TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'guest',
	den           TEXT NOT NULL DEFAULT '',
	online        INTEGER NOT NULL DEFAULT 0,
	last_seen     DATETIME NOT NULL,
	created_at    DATETIME NOT NULL,
	banned        INTEGER NOT NULL DEFAULT 0,
	ban_reason    TEXT NOT NULL DEFAULT '',
	banned_by     TEXT NOT NULL DEFAULT '',
	banned_at     DATETIME,
	muted_until   DATETIME,
	mute_reason   TEXT NOT NULL DEFAULT '',
	muted_by      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS chat_channels (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT 'pack',
	active        INTEGER NOT NULL DEFAULT 1,
	message_count INTEGER NOT NULL DEFAULT 0,
	last_activity DATETIME NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	created_by    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          TEXT PRIMARY KEY,
	channel_id  TEXT NOT NULL,
	sender_id   TEXT NOT NULL,
	sender_name TEXT NOT NULL,
	content     TEXT NOT NULL,
	ts          DATETIME NOT NULL,
	is_system   INTEGER NOT NULL DEFAULT 0,
	is_admin    INTEGER NOT NULL DEFAULT 0,
	den         TEXT NOT NULL DEFAULT '',
	reactions   TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_channel_ts ON chat_messages(channel_id, ts);
CREATE INDEX IF NOT EXISTS idx_chat_users_last_seen ON chat_users(last_seen);
`

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	watchers := s.watchers
	s.watchers = make(map[int64]*watcher)
	s.mu.Unlock()
	for _, w := range watchers {
		w.stop.Do(func() { close(w.done) })
	}
	return s.db.Close()
}

// ==== UserStore implementation ====

const userColumns = `id, display_name, photo_url, session_id, role, den, online, last_seen, created_at,
	banned, ban_reason, banned_by, banned_at, muted_until, mute_reason, muted_by`

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	var (
		u          core.User
		role, den  string
		bannedAt   sql.NullTime
		mutedUntil sql.NullTime
	)
	err := row.Scan(&u.ID, &u.DisplayName, &u.PhotoURL, &u.SessionID, &role, &den, &u.Online,
		&u.LastSeen, &u.CreatedAt, &u.Banned, &u.BanReason, &u.BannedBy, &bannedAt,
		&mutedUntil, &u.MuteReason, &u.MutedBy)
	if err != nil {
		return nil, err
	}
	u.Role = core.ParseRole(role)
	u.Den = core.ParseDen(den)
	if bannedAt.Valid {
		t := bannedAt.Time
		u.BannedAt = &t
	}
	if mutedUntil.Valid {
		t := mutedUntil.Time
		u.MutedUntil = &t
	}
	return &u, nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM chat_users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// PutUser creates the user or refreshes its identity/presence fields.
// Moderation columns are deliberately left out of the upsert.
func (s *SQLiteStore) PutUser(ctx context.Context, u *core.User) error {
	now := time.Now().UTC()
	lastSeen := u.LastSeen
	if lastSeen.IsZero() {
		lastSeen = now
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	var bannedAt, mutedUntil any
	if u.BannedAt != nil {
		bannedAt = *u.BannedAt
	}
	if u.MutedUntil != nil {
		mutedUntil = *u.MutedUntil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			photo_url    = excluded.photo_url,
			session_id   = excluded.session_id,
			role         = excluded.role,
			den          = excluded.den,
			online       = excluded.online,
			last_seen    = excluded.last_seen
	`, u.ID, u.DisplayName, u.PhotoURL, u.SessionID, string(u.Role), string(u.Den), u.Online,
		lastSeen, createdAt, u.Banned, u.BanReason, u.BannedBy, bannedAt,
		mutedUntil, u.MuteReason, u.MutedBy)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// ApplyUser applies a partial update to an existing user.
func (s *SQLiteStore) ApplyUser(ctx context.Context, id string, patch store.UserPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if patch.DisplayName != nil {
		set("display_name", *patch.DisplayName)
	}
	if patch.PhotoURL != nil {
		set("photo_url", *patch.PhotoURL)
	}
	if patch.SessionID != nil {
		set("session_id", *patch.SessionID)
	}
	if patch.Role != nil {
		set("role", string(*patch.Role))
	}
	if patch.Den != nil {
		set("den", string(*patch.Den))
	}
	if patch.Online != nil {
		set("online", *patch.Online)
	}
	if patch.LastSeen != nil {
		set("last_seen", *patch.LastSeen)
	}
	if patch.Banned != nil {
		set("banned", *patch.Banned)
	}
	if patch.BanReason != nil {
		set("ban_reason", *patch.BanReason)
	}
	if patch.BannedBy != nil {
		set("banned_by", *patch.BannedBy)
	}
	if patch.BannedAt != nil {
		set("banned_at", *patch.BannedAt)
	}
	if patch.ClearBan {
		sets = append(sets, "banned = 0", "ban_reason = ''", "banned_by = ''", "banned_at = NULL")
	}
	if patch.MutedUntil != nil {
		set("muted_until", *patch.MutedUntil)
	}
	if patch.MuteReason != nil {
		set("mute_reason", *patch.MuteReason)
	}
	if patch.MutedBy != nil {
		set("muted_by", *patch.MutedBy)
	}
	if patch.ClearMute {
		sets = append(sets, "muted_until = NULL", "mute_reason = ''", "muted_by = ''")
	}

	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("apply user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply user: %w", err)
	}
	if affected == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// ListUsers returns all users, most recently seen first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*core.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM chat_users ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ListOnlineUsers returns users marked online and seen after the given instant.
func (s *SQLiteStore) ListOnlineUsers(ctx context.Context, since time.Time) ([]*core.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM chat_users WHERE online = 1 AND last_seen > ? ORDER BY last_seen DESC`,
		since)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]*core.User, error) {
	var users []*core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ==== ChannelStore implementation ====

const channelColumns = `id, name, description, category, active, message_count, last_activity, created_at, updated_at, created_by`

func scanChannel(row interface{ Scan(...any) error }) (*core.Channel, error) {
	var (
		ch       core.Channel
		category string
	)
	err := row.Scan(&ch.ID, &ch.Name, &ch.Description, &category, &ch.Active, &ch.MessageCount,
		&ch.LastActivity, &ch.CreatedAt, &ch.UpdatedAt, &ch.CreatedBy)
	if err != nil {
		return nil, err
	}
	ch.Category = core.ParseChannelCategory(category)
	return &ch, nil
}

// GetChannel retrieves a channel by id.
func (s *SQLiteStore) GetChannel(ctx context.Context, id string) (*core.Channel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM chat_channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

// ListActiveChannels returns active channels, ordered by creation time when
// requested.
func (s *SQLiteStore) ListActiveChannels(ctx context.Context, ordered bool) ([]*core.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM chat_channels WHERE active = 1`
	if ordered {
		query += ` ORDER BY created_at`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*core.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// CreateChannel inserts a new channel with server-assigned timestamps.
func (s *SQLiteStore) CreateChannel(ctx context.Context, ch *core.Channel) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_channels (`+channelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ch.ID, ch.Name, ch.Description, string(ch.Category), ch.Active, ch.MessageCount,
		now, now, now, ch.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	ch.LastActivity, ch.CreatedAt, ch.UpdatedAt = now, now, now
	return nil
}

// ApplyChannel applies a partial update to an existing channel.
func (s *SQLiteStore) ApplyChannel(ctx context.Context, id string, patch store.ChannelPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*patch.Category))
	}
	if patch.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, *patch.Active)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_channels SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("apply channel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply channel: %w", err)
	}
	if affected == 0 {
		return core.ErrChannelNotFound
	}
	return nil
}

// SeedChannels inserts channels, skipping ids that already exist.
func (s *SQLiteStore) SeedChannels(ctx context.Context, channels []*core.Channel) error {
	now := time.Now().UTC()
	for _, ch := range channels {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO chat_channels (`+channelColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, ch.ID, ch.Name, ch.Description, string(ch.Category), ch.Active, ch.MessageCount,
			now, now, now, ch.CreatedBy)
		if err != nil {
			return fmt.Errorf("seed channel %s: %w", ch.ID, err)
		}
	}
	return nil
}

// BumpChannelActivity advances last_activity and increments the message count.
func (s *SQLiteStore) BumpChannelActivity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_channels
		SET last_activity = ?, message_count = message_count + 1, updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("bump channel activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump channel activity: %w", err)
	}
	if affected == 0 {
		return core.ErrChannelNotFound
	}
	return nil
}

// ==== MessageStore implementation ====

const messageColumns = `id, channel_id, sender_id, sender_name, content, ts, is_system, is_admin, den, reactions`

func scanMessage(row interface{ Scan(...any) error }) (*core.Message, error) {
	var (
		m         core.Message
		den       string
		reactions string
	)
	err := row.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.SenderName, &m.Content, &m.Timestamp,
		&m.IsSystem, &m.IsAdmin, &den, &reactions)
	if err != nil {
		return nil, err
	}
	m.Den = core.ParseDen(den)
	if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
		return nil, fmt.Errorf("decode reactions: %w", err)
	}
	return &m, nil
}

// AppendMessage persists a message with a server-assigned id and timestamp.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *core.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Timestamp = time.Now().UTC()
	if msg.Reactions == nil {
		msg.Reactions = []core.Reaction{}
	}
	reactions, err := json.Marshal(msg.Reactions)
	if err != nil {
		return "", fmt.Errorf("encode reactions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChannelID, msg.SenderID, msg.SenderName, msg.Content, msg.Timestamp,
		msg.IsSystem, msg.IsAdmin, string(msg.Den), string(reactions))
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}

	s.notifyChannel(msg.ChannelID)
	return msg.ID, nil
}

// GetMessage retrieves a message by id.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*core.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// ListMessages returns up to limit messages for a channel, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, channelID string, limit int) ([]*core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM chat_messages
		WHERE channel_id = ?
		ORDER BY ts DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*core.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// SetReactions replaces a message's reaction list.
func (s *SQLiteStore) SetReactions(ctx context.Context, messageID string, reactions []core.Reaction) error {
	if reactions == nil {
		reactions = []core.Reaction{}
	}
	encoded, err := json.Marshal(reactions)
	if err != nil {
		return fmt.Errorf("encode reactions: %w", err)
	}

	var channelID string
	err = s.db.QueryRowContext(ctx,
		`SELECT channel_id FROM chat_messages WHERE id = ?`, messageID).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("set reactions: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE chat_messages SET reactions = ? WHERE id = ?`, string(encoded), messageID); err != nil {
		return fmt.Errorf("set reactions: %w", err)
	}

	s.notifyChannel(channelID)
	return nil
}

// DeleteMessage removes a message record.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	var channelID string
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id FROM chat_messages WHERE id = ?`, id).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	s.notifyChannel(channelID)
	return nil
}

// WatchMessages registers a live subscription for a channel window and
// delivers the current snapshot immediately.
func (s *SQLiteStore) WatchMessages(channelID string, limit int, onChange func([]*core.Message), onError func(error)) (func(), error) {
	if onChange == nil {
		return nil, fmt.Errorf("watch messages: nil onChange callback")
	}

	w := &watcher{
		channelID: channelID,
		limit:     limit,
		onChange:  onChange,
		onError:   onError,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	w.notify <- struct{}{}

	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.watchers[id] = w
	s.mu.Unlock()

	go s.serve(w)

	cancel := func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		w.stop.Do(func() { close(w.done) })
	}
	return cancel, nil
}

// notifyChannel pokes every watcher on the channel. Each watcher owns one
// serving goroutine that requeries and delivers, so a subscriber always sees
// snapshots in write order; back-to-back pokes coalesce into one requery.
func (s *SQLiteStore) notifyChannel(channelID string) {
	s.mu.Lock()
	var targets []*watcher
	for _, w := range s.watchers {
		if w.channelID == channelID {
			targets = append(targets, w)
		}
	}
	s.mu.Unlock()

	for _, w := range targets {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// serve is a watcher's run loop: one snapshot query and delivery at a time.
func (s *SQLiteStore) serve(w *watcher) {
	for {
		select {
		case <-w.done:
			return
		case <-w.notify:
			s.dispatch(w)
		}
	}
}

func (s *SQLiteStore) dispatch(w *watcher) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := s.ListMessages(ctx, w.channelID, w.limit)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	// Snapshots are delivered in chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	w.onChange(messages)
}
