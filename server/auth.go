package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"quiver/ranged"
)

const (
	tokenExpiry      = 24 * time.Hour
	minPasswordLen   = 4
	joinRateWindow   = 60 * time.Second
	maxJoinAttempts  = 10
	secretSettingKey = "jwt_secret"
)

var (
	ErrBadToken      = errors.New("invalid token")
	ErrBadPassword   = errors.New("wrong session password")
	ErrShortPassword = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrRateLimited   = errors.New("too many join attempts, try again later")
)

// Auth issues rejoin tokens and checks session passwords
type Auth struct {
	jwtSecret []byte

	// Rate limiting for password attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler. The signing secret survives restarts
// when a database is given, so tokens stay valid across them.
func NewAuth(db *DB, log *slog.Logger) *Auth {
	return &Auth{
		jwtSecret: loadOrCreateSecret(db, log),
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB, log *slog.Logger) []byte {
	if db != nil {
		if h := db.GetSetting(secretSettingKey); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting(secretSettingKey, hex.EncodeToString(secret)); err != nil {
			log.Warn("could not persist JWT secret", "err", err)
		}
	}
	return secret
}

// IssueToken signs a token that lets a client resume its combatant
func (a *Auth) IssueToken(sessionID string, id ranged.CombatantID) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"cid": string(id),
		"exp": time.Now().Add(tokenExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken checks a rejoin token and returns the session and combatant
// it names.
func (a *Auth) ValidateToken(tokenStr string) (string, ranged.CombatantID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrBadToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", ErrBadToken
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", "", ErrBadToken
	}
	cid, ok := claims["cid"].(string)
	if !ok || cid == "" {
		return "", "", ErrBadToken
	}
	return sid, ranged.CombatantID(cid), nil
}

// HashPassword hashes a session password for storage
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrShortPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a join attempt against a session's password hash.
// Sessions without a hash are open.
func (a *Auth) CheckPassword(hash, password, ip string) error {
	if hash == "" {
		return nil
	}
	if !a.checkRate(ip) {
		return ErrRateLimited
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(joinRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxJoinAttempts
}
