package identity

import "errors"

var (
	ErrNotFound           = errors.New("identity: not found")
	ErrConflict           = errors.New("identity: already exists")
	ErrInvalidInput       = errors.New("identity: invalid input")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrInactiveAccount    = errors.New("identity: account inactive")
	ErrInvalidToken       = errors.New("identity: invalid token")
	ErrForbidden          = errors.New("identity: forbidden")
	ErrRoleNotAllowed     = errors.New("identity: role not allowed for institute type")
)
