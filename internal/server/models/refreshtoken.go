package models

import "time"

// RefreshToken is the single stored refresh record of a user.
type RefreshToken struct {
	UserID    string
	Token     string
	CreatedAt time.Time
}
