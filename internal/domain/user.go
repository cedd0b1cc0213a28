package domain

import "time"

// User is created lazily the first time an email address verifies a login
// code. Authentication itself is passwordless.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginCode is one dispatched one-time login code. Only the bcrypt hash is
// stored; a code is spent once Consumed is set or ExpiresAt has passed.
type LoginCode struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Email     string    `gorm:"not null;index"`
	CodeHash  string    `gorm:"not null"`
	Consumed  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`
}
