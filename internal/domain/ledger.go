package domain

import "time"

type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	OccurredAt  time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserApprovedEvent se publica cuando un administrador aprueba un registro.
type UserApprovedEvent struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	ApprovedAt time.Time `json:"approvedAt"`
}
