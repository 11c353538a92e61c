package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the only user shape that leaves the service.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Identity is the verified caller resolved from a bearer token.
type Identity struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}
