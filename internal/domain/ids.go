package domain

// UserID is an internal identifier for a user account. It is also the
// authenticated subject carried in bearer token `sub` claims.
type UserID string

// EventID is an internal identifier for an event record.
type EventID string
