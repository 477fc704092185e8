package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gravitas-games/cachegrid/internal/config"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/gravitas-games/cachegrid/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	errMissingToken = errors.New("missing authentication token")
	errBlacklisted  = errors.New("token is blacklisted")
)

// JWTValidator handles JWT token validation
type JWTValidator struct {
	config          config.JWTConfig
	blacklistPrefix string
	publicKey       *ecdsa.PublicKey
	keyMu           sync.RWMutex
	redis           redis.Cmdable
	log             *logrus.Entry
}

// Claims represents JWT token claims from the login server
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AuthMethod  string `json:"auth_method"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator loads the public key and, when it comes from a URL, keeps
// refreshing it until ctx is cancelled. redisClient may be nil, which
// disables the blacklist check.
func NewJWTValidator(ctx context.Context, cfg *config.Config, redisClient redis.Cmdable) (*JWTValidator, error) {
	v := &JWTValidator{
		config:          cfg.JWT,
		blacklistPrefix: cfg.Redis.BlacklistPrefix,
		redis:           redisClient,
		log:             logger.Component("auth"),
	}

	if err := v.RefreshPublicKey(ctx); err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	if v.config.PublicKeyURL != "" && v.config.PublicKeyRefreshHrs > 0 {
		go v.periodicKeyRefresh(ctx)
	}

	v.log.Info("JWT validator initialized")
	return v, nil
}

// RefreshPublicKey reads the public key from the configured file or URL
func (v *JWTValidator) RefreshPublicKey(ctx context.Context) error {
	keyData, err := v.readPublicKey(ctx)
	if err != nil {
		return err
	}

	key, err := parsePublicKey(keyData)
	if err != nil {
		return err
	}

	v.keyMu.Lock()
	v.publicKey = key
	v.keyMu.Unlock()

	v.log.Debug("Public key refreshed")
	return nil
}

func (v *JWTValidator) readPublicKey(ctx context.Context) ([]byte, error) {
	if v.config.PublicKeyFile != "" {
		data, err := os.ReadFile(v.config.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key file: %w", err)
		}
		return data, nil
	}

	v.log.WithField("url", v.config.PublicKeyURL).Info("Fetching public key")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.PublicKeyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build public key request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("public key endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return data, nil
}

func parsePublicKey(keyData []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

func (v *JWTValidator) periodicKeyRefresh(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(v.config.PublicKeyRefreshHrs) * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.RefreshPublicKey(ctx); err != nil {
				v.log.WithError(err).Warn("Failed to refresh public key")
			}
		}
	}
}

// ValidateToken validates a JWT token and returns player information
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*models.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		v.keyMu.RLock()
		defer v.keyMu.RUnlock()
		return v.publicKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if v.config.Issuer != "" && claims.Issuer != v.config.Issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", v.config.Issuer, claims.Issuer)
	}

	switch claims.Activated {
	case 0:
		return nil, fmt.Errorf("user not activated")
	case -1:
		return nil, fmt.Errorf("user is banned")
	}

	userID := strconv.FormatInt(claims.UserID, 10)
	if v.redis != nil && v.blacklistPrefix != "" {
		n, err := v.redis.Exists(ctx, v.blacklistPrefix+userID).Result()
		if err != nil {
			// Redis being down must not lock everyone out.
			v.log.WithError(err).Warn("Failed to check blacklist")
		} else if n > 0 {
			return nil, errBlacklisted
		}
	}

	return &models.Player{
		ID:          userID,
		Username:    claims.Username,
		Email:       claims.Email,
		Permissions: claims.Permissions,
		Activated:   claims.Activated,
		AuthMethod:  claims.AuthMethod,
	}, nil
}

// extractToken finds the JWT in the websocket subprotocol, the
// Authorization header or the token query parameter, in that order.
func extractToken(r *http.Request) string {
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		// Format: "access_token, <token>"
		parts := splitAndTrim(protocols, ",")
		if len(parts) == 2 && parts[0] == "access_token" {
			return parts[1]
		}
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// authenticate resolves the player behind an upgrade request.
func (s *Server) authenticate(r *http.Request) (*models.Player, error) {
	if s.jwtValidator == nil {
		name := r.URL.Query().Get("player")
		if name == "" {
			return nil, errMissingToken
		}
		return models.NewAnonymous(name)
	}

	tokenString := extractToken(r)
	if tokenString == "" {
		return nil, errMissingToken
	}
	return s.jwtValidator.ValidateToken(r.Context(), tokenString)
}
