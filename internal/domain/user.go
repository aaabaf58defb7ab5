// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrInvalidRole     = errors.New("invalid role")
)

type UserID string

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Sender is the identity a chat message is attributed to. The hub does not
// authenticate it; the CRUD layer's token already did.
type Sender struct {
	UserID UserID `json:"userId"`
	Name   string `json:"userName"`
	Role   Role   `json:"userRole"`
}

func (s Sender) Validate() error {
	if len(s.UserID) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	if len(s.Name) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	if !s.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
