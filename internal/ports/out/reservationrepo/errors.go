package reservationrepo

import "errors"

var ErrNotFound = errors.New("reservation not found")
