package model

import "time"

// RegisteredUser is an account created through the storefront registration
// form during a test run.
type RegisteredUser struct {
	ID              int64     `json:"id" db:"id"`
	FirstName       string    `json:"first_name" db:"firstname"`
	LastName        string    `json:"last_name" db:"lastname"`
	Email           string    `json:"email" db:"email"`
	Telephone       string    `json:"telephone" db:"telephone"`
	Password        string    `json:"password" db:"password"`
	ConfirmPassword string    `json:"confirm_password" db:"confirm_password"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// UserData is a back-office account stored for later login tests.
type UserData struct {
	ID           int64  `json:"id" db:"id"`
	BusinessName string `json:"business_name" db:"business_name"`
	Username     string `json:"username" db:"username"`
	Password     string `json:"password" db:"password"`
	Email        string `json:"email" db:"email"`
}
