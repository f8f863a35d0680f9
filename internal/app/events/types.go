package events

import "time"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type CreateEventInput struct {
	Title       string
	Description *string
	StartsAt    time.Time
	// MaxAttendees caps ACCEPTED reservations; nil means unlimited.
	MaxAttendees *int
}

type UpdateEventInput struct {
	// Title is optional and cannot be null.
	Title Optional[string]

	Description Optional[string]
	StartsAt    Optional[time.Time] // cannot be null

	// MaxAttendees may be set to null to lift the cap.
	MaxAttendees Optional[int]
}
