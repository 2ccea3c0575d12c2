package models

import "time"

// UserProfile is the minimal profile persisted for offline display.
// A single row (id "default" when the remote id is unknown) is kept.
type UserProfile struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Email       string    `gorm:"size:255" json:"email,omitempty"`
	DisplayName string    `gorm:"size:255" json:"display_name,omitempty"`
	AvatarURL   string    `gorm:"size:2048" json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (UserProfile) TableName() string {
	return "user_profile"
}
