package repository

import "context"

// SequenceRepository contador de correlativos por (establecimiento, tipo de DTE).
type SequenceRepository interface {
	// NextSequence incrementa y devuelve el correlativo. El incremento queda
	// persistido antes de devolver: dos llamadas nunca obtienen el mismo número.
	NextSequence(ctx context.Context, establishmentID, typeCode string) (int64, error)

	// Current devuelve el último correlativo entregado (0 si no hay).
	Current(ctx context.Context, establishmentID, typeCode string) (int64, error)
}
