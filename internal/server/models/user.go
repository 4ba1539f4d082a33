// Package models holds the persistent records shared by repositories and
// services.
package models

import "time"

// User is a registered identity. PasswordHash never leaves the server.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
}
