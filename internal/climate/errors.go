package climate

import "errors"

var (
	// ErrEntityNotFound indicates no entity is registered under the id.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownService indicates the service name is not a climate service.
	ErrUnknownService = errors.New("unknown climate service")

	// ErrNotSupported indicates the entity lacks the feature a service needs.
	ErrNotSupported = errors.New("feature not supported")

	// ErrInvalidServiceData indicates service data failed validation.
	ErrInvalidServiceData = errors.New("invalid service data")

	// ErrInvalidHVACMode is wrapped by adapters that cannot translate a mode.
	ErrInvalidHVACMode = errors.New("invalid hvac_mode")
)
