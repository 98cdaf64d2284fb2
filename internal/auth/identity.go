package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pack1703/packchat/internal/core"
)

// Identity is what the external authentication provider vouches for. A nil
// Identity means the caller is anonymous, which is not an error.
type Identity struct {
	ID          string
	DisplayName string
	PhotoURL    string
	Role        core.Role
}

// Claims are the portal identity token claims.
type Claims struct {
	DisplayName string `json:"name"`
	PhotoURL    string `json:"picture"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Config holds identity token verification settings.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// Verifier validates portal identity tokens.
type Verifier struct {
	cfg *Config
}

// NewVerifier builds a verifier from the given config.
func NewVerifier(cfg *Config) *Verifier {
	return &Verifier{cfg: cfg}
}

// Identity parses and validates a portal identity token. An empty token
// yields a nil identity; an invalid one yields an error so transports can
// distinguish "anonymous" from "forged".
func (v *Verifier) Identity(tokenString string) (*Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if v.cfg.Issuer != "" && claims.Issuer != v.cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if v.cfg.Audience != "" {
		valid := false
		for _, aud := range claims.Audience {
			if aud == v.cfg.Audience {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("invalid audience")
		}
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &Identity{
		ID:          claims.Subject,
		DisplayName: claims.DisplayName,
		PhotoURL:    claims.PhotoURL,
		Role:        core.ParseRole(claims.Role),
	}, nil
}

// GenerateToken mints an identity token. Used by the admin tooling and tests;
// the production issuer is the portal's auth provider.
func GenerateToken(cfg *Config, id, displayName string, role core.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		DisplayName: displayName,
		Role:        string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
