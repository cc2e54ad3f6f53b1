package models

import "time"

type User struct {
	ID           int64     `db:"id"`
	Name         string    `db:"nombre"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password"`
	CreatedAt    time.Time `db:"created_at"`
}
