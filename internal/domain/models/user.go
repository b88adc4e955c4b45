package models

import "time"

type User struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	PassHash  []byte    `db:"password_hash"`
	CreatedAt time.Time `db:"created_at"`
}
