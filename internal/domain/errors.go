package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrIneligible         = errors.New("factura no elegible para Veri*FACTU")
	ErrValidation         = errors.New("faltan datos fiscales obligatorios")
	ErrInvalidState       = errors.New("operación no permitida en el estado actual")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
)
