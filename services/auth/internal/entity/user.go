package entity

import (
	"io"
	"path/filepath"
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Avatar is an uploaded profile picture.
type Avatar struct {
	Name        string
	ContentType string
	Body        io.Reader
}

func (a *Avatar) Extension() string {
	return strings.ToLower(filepath.Ext(a.Name))
}
