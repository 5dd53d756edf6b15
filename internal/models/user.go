package models

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Phone        *string    `json:"phone,omitempty"`
	DisplayName  *string    `json:"display_name,omitempty"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) IsActive() bool { return u.Status == StatusActive }

// Profile strips the password hash.
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Phone:       u.Phone,
		DisplayName: u.DisplayName,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

type UserProfile struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Phone       *string    `json:"phone,omitempty"`
	DisplayName *string    `json:"display_name,omitempty"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type Registration struct {
	Username    string  `json:"username" validate:"required"`
	Password    string  `json:"password" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
}

// ProfileUpdate lists the only mutable profile fields. Nil means "leave as is".
type ProfileUpdate struct {
	Email       *string `json:"email,omitempty" validate:"omitnil,email"`
	DisplayName *string `json:"display_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Email == nil && p.DisplayName == nil && p.Phone == nil
}
