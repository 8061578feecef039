package repository

import (
	"context"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// InvoiceRecordRepository lectura de las facturas del sistema contable.
// El compilador nunca modifica la factura; Save existe para cargas e importaciones.
type InvoiceRecordRepository interface {
	GetByID(ctx context.Context, id string) (*entity.InvoiceRecord, error)
	Save(ctx context.Context, rec *entity.InvoiceRecord) error
}
