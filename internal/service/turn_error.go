package service

import (
	"fmt"

	"github.com/calebzhan/fflbot/internal/domain"
)

// TurnError reports a rejected draft submission together with the turn the
// server actually expected, so clients can resynchronize instead of guessing.
type TurnError struct {
	ExpectedPlayer string
	ExpectedIndex  int
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%v: expected pick %d by %s",
		domain.ErrTurnViolation, e.ExpectedIndex, e.ExpectedPlayer)
}

func (e *TurnError) Unwrap() error {
	return domain.ErrTurnViolation
}
