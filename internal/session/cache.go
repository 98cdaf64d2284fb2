package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pack1703/packchat/internal/core"
)

// ProfileCache persists resolved chat profiles across resolutions, keyed by
// the device that produced them. Each browser or client installation gets
// its own key, so an anonymous visitor keeps a stable scout identity on the
// same device without colliding with anyone else's.
type ProfileCache interface {
	// Load returns the cached profile for a device, or (nil, nil) when none
	// is stored.
	Load(deviceKey string) (*core.User, error)

	// Save stores the profile for the next resolution on this device.
	Save(deviceKey string, u *core.User) error

	// Clear removes the stored profile for a device.
	Clear(deviceKey string) error
}

type cachedProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Den         string    `json:"den,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FileCache is a ProfileCache backed by a single JSON file holding the
// profile map for every known device.
type FileCache struct {
	mu   sync.Mutex
	path string
}

// NewFileCache builds a file-backed cache at the given path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load returns the cached profile for a device, or nil when absent.
func (c *FileCache) Load(deviceKey string) (*core.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	profiles, err := c.read()
	if err != nil {
		return nil, err
	}

	p, ok := profiles[deviceKey]
	if !ok || p.ID == "" || p.DisplayName == "" {
		return nil, nil
	}

	return &core.User{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		SessionID:   p.SessionID,
		Role:        core.ParseRole(p.Role),
		Den:         core.ParseDen(p.Den),
		CreatedAt:   p.CreatedAt,
	}, nil
}

// Save stores the profile, creating parent directories as needed.
func (c *FileCache) Save(deviceKey string, u *core.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	profiles, err := c.read()
	if err != nil {
		return err
	}
	profiles[deviceKey] = cachedProfile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		SessionID:   u.SessionID,
		Role:        string(u.Role),
		Den:         string(u.Den),
		CreatedAt:   u.CreatedAt,
	}
	return c.write(profiles)
}

// Clear removes the stored profile for a device.
func (c *FileCache) Clear(deviceKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	profiles, err := c.read()
	if err != nil {
		return err
	}
	if _, ok := profiles[deviceKey]; !ok {
		return nil
	}
	delete(profiles, deviceKey)
	return c.write(profiles)
}

func (c *FileCache) read() (map[string]cachedProfile, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]cachedProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile cache: %w", err)
	}

	profiles := map[string]cachedProfile{}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode profile cache: %w", err)
	}
	return profiles, nil
}

func (c *FileCache) write(profiles map[string]cachedProfile) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write profile cache: %w", err)
	}
	return nil
}
