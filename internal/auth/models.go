package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an admin credential record.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Claims describes the validated identity extracted from an access token.
type Claims struct {
	UserID    uuid.UUID
	Username  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}
