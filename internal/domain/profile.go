package domain

import "strings"

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// UserProfile holds the per-user display name and cosmetic preferences. At
// most one profile exists per user; the unique index on UserID backs the
// upsert used by the settings flow.
type UserProfile struct {
	ID          string  `gorm:"primaryKey;size:36" json:"id"`
	UserID      string  `gorm:"not null;uniqueIndex;size:36" json:"userId"`
	DisplayName string  `gorm:"not null" json:"displayName"`
	AccentColor *string `json:"accentColor"`
	Theme       string  `gorm:"not null;default:dark" json:"theme"`
}

// DefaultDisplayName derives the fallback list title from the local part of
// the user's email address.
func DefaultDisplayName(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		local = "My"
	}
	return local + "'s Todo List"
}
