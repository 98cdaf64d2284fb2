package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pack1703/packchat/internal/core"
)

func TestListChannelsServesDefaultsAnonymously(t *testing.T) {
	fx := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	resp := httptest.NewRecorder()
	fx.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var channels []ChannelPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &channels); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(channels) != 9 {
		t.Fatalf("expected 9 default channels, got %d", len(channels))
	}
	for _, ch := range channels {
		if !ch.Protected {
			t.Errorf("default channel %s should be protected", ch.ID)
		}
	}
}

func TestCreateChannelRequiresVolunteerRole(t *testing.T) {
	fx := newTestFixture(t)

	body := bytes.NewBufferString(`{"name":"hiking-club","category":"pack"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/channels", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "p1", "Jordan", core.RoleParent))

	resp := httptest.NewRecorder()
	fx.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}

	body = bytes.NewBufferString(`{"name":"hiking-club","category":"pack"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/channels", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "v1", "Casey", core.RoleVolunteer))

	resp = httptest.NewRecorder()
	fx.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var ch ChannelPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &ch); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if ch.Name != "hiking-club" || ch.Category != "pack" {
		t.Errorf("unexpected channel payload: %+v", ch)
	}
}

func TestRetireProtectedChannelConflicts(t *testing.T) {
	fx := newTestFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/channels/general", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "a1", "Admin", core.RoleSuperAdmin))

	resp := httptest.NewRecorder()
	fx.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if errResp.Code != core.ErrCodeChannelProtected {
		t.Errorf("expected code channel_protected, got %q", errResp.Code)
	}
}

func TestSystemMessageRequiresAdmin(t *testing.T) {
	fx := newTestFixture(t)

	body := bytes.NewBufferString(`{"content":"Pack meeting at 6pm"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/channels/announcements/system", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "v1", "Casey", core.RoleVolunteer))

	resp := httptest.NewRecorder()
	fx.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}

	body = bytes.NewBufferString(`{"content":"Pack meeting at 6pm"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/channels/announcements/system", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "a1", "Admin", core.RoleAdmin))

	resp = httptest.NewRecorder()
	fx.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	fx := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	resp := httptest.NewRecorder()
	fx.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", resp.Code, resp.Body.String())
	}
}
