package domain

import "time"

// User is the domain representation of a user account.
type User struct {
	ID          UserID
	Email       string
	DisplayName string

	CreatedAt time.Time
	UpdatedAt time.Time
}
