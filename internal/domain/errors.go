package domain

import "errors"

var (
	// ErrDataUnavailable: el proveedor de datos falló o no respondió. Reintentable.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInvalidPrice: precio o probabilidad fuera de (0,1).
	ErrInvalidPrice = errors.New("invalid price")
	// ErrDuplicateStrategy: ya hay una estrategia registrada con ese ID.
	ErrDuplicateStrategy = errors.New("duplicate strategy")
	// ErrUnknownStrategy: no hay estrategia registrada con ese ID.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrRejectedOrder: el endpoint de ejecución rechazó la orden.
	ErrRejectedOrder = errors.New("order rejected")
)
