package errors

import (
	"fmt"
)

var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrStatsUnavailable = fmt.Errorf("statistics unavailable")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
)
