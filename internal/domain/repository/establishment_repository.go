package repository

import (
	"context"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// EstablishmentRepository define el puerto de persistencia para establecimientos y puntos de venta.
type EstablishmentRepository interface {
	Create(ctx context.Context, est *entity.Establishment) error
	GetByID(ctx context.Context, id string) (*entity.Establishment, error)

	// GetDefaultByCompany devuelve el establecimiento activo principal de la empresa.
	// Se usa cuando la factura no indica establecimiento.
	GetDefaultByCompany(ctx context.Context, companyID string) (*entity.Establishment, error)

	ListByCompany(ctx context.Context, companyID string) ([]*entity.Establishment, error)
}
