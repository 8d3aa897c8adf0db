package impact

import "errors"

var (
	ErrInvalidConfig = errors.New("impact: invalid config")
	ErrNilOwner      = errors.New("impact: nil owner")
	ErrInvalidShape  = errors.New("impact: invalid shape")
	ErrUnknownShape  = errors.New("impact: unknown shape")
)
