package models

import "time"

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	GroupName    string    `json:"group,omitempty" db:"group_name"`
	Faculty      string    `json:"faculty,omitempty" db:"faculty"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

type UserFilter struct {
	Role  Role
	Skip  int
	Limit int
}
