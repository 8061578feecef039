package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo empresas emisoras sobre PostgreSQL. El NIT se guarda normalizado a 14 dígitos.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `id, name, commercial_name, nit, nrc, activity_code, activity_desc, phone, email, status, created_at, updated_at`

func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	query := `
		INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.Name, nullIfEmpty(c.CommercialName), mh.NormalizeNIT(c.NIT), nullIfEmpty(c.NRC),
		nullIfEmpty(c.ActivityCode), nullIfEmpty(c.ActivityDesc), nullIfEmpty(c.Phone), nullIfEmpty(c.Email), c.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("empresa con NIT %s: %w", c.NIT, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	c, err := scanCompany(r.q.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (r *CompanyRepo) GetByNIT(ctx context.Context, nit string) (*entity.Company, error) {
	c, err := scanCompany(r.q.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE nit = $1`, mh.NormalizeNIT(nit)))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company by NIT: %w", err)
	}
	return c, nil
}

func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	const query = `
		UPDATE companies
		SET name = $2, commercial_name = $3, nit = $4, nrc = $5, activity_code = $6,
		    activity_desc = $7, phone = $8, email = $9, status = $10, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.Name, nullIfEmpty(c.CommercialName), mh.NormalizeNIT(c.NIT), nullIfEmpty(c.NRC),
		nullIfEmpty(c.ActivityCode), nullIfEmpty(c.ActivityDesc), nullIfEmpty(c.Phone), nullIfEmpty(c.Email), c.Status,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*entity.Company, error) {
	var c entity.Company
	var commercial, nrc, activity, activityDesc, phone, email *string
	err := row.Scan(&c.ID, &c.Name, &commercial, &c.NIT, &nrc, &activity, &activityDesc,
		&phone, &email, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CommercialName = derefString(commercial)
	c.NRC = derefString(nrc)
	c.ActivityCode = derefString(activity)
	c.ActivityDesc = derefString(activityDesc)
	c.Phone = derefString(phone)
	c.Email = derefString(email)
	return &c, nil
}
