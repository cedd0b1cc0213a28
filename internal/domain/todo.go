package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Todo is a single task record. Every todo belongs to exactly one user for
// its entire lifetime; there is no reassignment operation.
type Todo struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Text          string     `gorm:"not null" json:"text"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	CompletedDate *time.Time `json:"completedDate"`
	CreatedDate   time.Time  `gorm:"not null" json:"createdDate"`
	FollowUp      *FollowUp  `gorm:"type:jsonb" json:"followUp"`
	UserID        string     `gorm:"not null;index;size:36" json:"userId"`
}

// FollowUp is an optional reminder attached to a todo. It is stored as a
// single JSON column and always replaced as a whole on write.
type FollowUp struct {
	DateTime time.Time `json:"dateTime"`
	Notes    string    `json:"notes"`
}

func (f *FollowUp) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

func (f *FollowUp) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported follow-up column type %T", value)
	}
	return json.Unmarshal(raw, f)
}
