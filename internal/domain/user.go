package domain

import "time"

// Role identifica el nivel de acceso de un usuario.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Verified     bool       `json:"verified"`
	Role         Role       `json:"role"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Live indica si el registro no fue eliminado.
func (u User) Live() bool {
	return u.DeletedAt == nil
}

// Identity es el descriptor de identidad que producen login y verificacion de token.
type Identity struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IdentityOf construye el descriptor a partir del registro persistido.
func IdentityOf(u User) Identity {
	return Identity{Email: u.Email, UserID: u.ID, Role: u.Role}
}

// PendingUser es la vista publica de un registro pendiente de aprobacion.
type PendingUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
