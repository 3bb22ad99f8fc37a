package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/pavelanni/bandscore/internal/model"
)

// DefaultAuthSessionTTL is used when a store is created without an explicit TTL.
const DefaultAuthSessionTTL = 12 * time.Hour

// SetAuthSessionTTL changes the lifetime of sessions created afterwards.
func (s *Store) SetAuthSessionTTL(ttl time.Duration) {
	if ttl > 0 {
		s.sessionTTL = ttl
	}
}

// CreateAuthSession issues a session token for a user.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(s.ttl()),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the live session for token. Expired sessions are
// removed on sight and reported as missing.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes expired sessions and reports how many went.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ttl() time.Duration {
	if s.sessionTTL <= 0 {
		return DefaultAuthSessionTTL
	}
	return s.sessionTTL
}
