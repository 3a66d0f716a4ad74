package models

import "time"

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a stored account. PasswordHash never leaves the service.
type User struct {
	ID           int       `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Mobile       string    `db:"mobile" json:"mobile"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	ProfilePic   string    `db:"profile_pic" json:"profile_pic"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID int
	Role   Role
}

// SidebarUser is a counterpart listed in the chat sidebar.
type SidebarUser struct {
	ID         int    `json:"id"`
	FullName   string `json:"full_name"`
	ProfilePic string `json:"profile_pic"`
	Role       Role   `json:"role"`
	Online     bool   `json:"online"`
}
