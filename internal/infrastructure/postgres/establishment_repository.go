package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var _ repository.EstablishmentRepository = (*EstablishmentRepo)(nil)

// EstablishmentRepo establecimientos y puntos de venta sobre PostgreSQL.
type EstablishmentRepo struct {
	q Querier
}

func NewEstablishmentRepository(q Querier) *EstablishmentRepo {
	return &EstablishmentRepo{q: q}
}

const establishmentColumns = `id, company_id, name, type, code, pos_code, code_mh, pos_code_mh,
	district_code, address, phone, email, is_active, created_at, updated_at`

func (r *EstablishmentRepo) Create(ctx context.Context, e *entity.Establishment) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO establishments (` + establishmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.CompanyID, e.Name, e.Type, nullIfEmpty(e.Code), nullIfEmpty(e.POSCode),
		nullIfEmpty(e.CodeMH), nullIfEmpty(e.POSCodeMH), nullIfEmpty(e.DistrictCode),
		nullIfEmpty(e.Address), nullIfEmpty(e.Phone), nullIfEmpty(e.Email), e.IsActive,
	)
	if err != nil {
		return fmt.Errorf("insert establishment: %w", err)
	}
	return nil
}

func (r *EstablishmentRepo) GetByID(ctx context.Context, id string) (*entity.Establishment, error) {
	e, err := scanEstablishment(r.q.QueryRow(ctx, `SELECT `+establishmentColumns+` FROM establishments WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get establishment: %w", err)
	}
	return e, nil
}

// GetDefaultByCompany prioriza la casa matriz (tipo 02) y luego el más antiguo.
func (r *EstablishmentRepo) GetDefaultByCompany(ctx context.Context, companyID string) (*entity.Establishment, error) {
	query := `SELECT ` + establishmentColumns + `
		FROM establishments
		WHERE company_id = $1 AND is_active = true
		ORDER BY (type = '02') DESC, created_at
		LIMIT 1`
	e, err := scanEstablishment(r.q.QueryRow(ctx, query, companyID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get default establishment: %w", err)
	}
	return e, nil
}

func (r *EstablishmentRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Establishment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+establishmentColumns+` FROM establishments WHERE company_id = $1 ORDER BY created_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list establishments: %w", err)
	}
	defer rows.Close()
	var list []*entity.Establishment
	for rows.Next() {
		e, err := scanEstablishment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan establishment: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanEstablishment(row rowScanner) (*entity.Establishment, error) {
	var e entity.Establishment
	var code, pos, codeMH, posMH, district, address, phone, email *string
	err := row.Scan(&e.ID, &e.CompanyID, &e.Name, &e.Type, &code, &pos, &codeMH, &posMH,
		&district, &address, &phone, &email, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Code, e.POSCode = derefString(code), derefString(pos)
	e.CodeMH, e.POSCodeMH = derefString(codeMH), derefString(posMH)
	e.DistrictCode = derefString(district)
	e.Address, e.Phone, e.Email = derefString(address), derefString(phone), derefString(email)
	return &e, nil
}
