package issuance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	pkgmh "github.com/jhoicas/dte-sv/pkg/mh"
)

// Issuer empresa emisora con sus establecimientos.
type Issuer struct {
	Company        *entity.Company
	Establishments []*entity.Establishment
}

// IssuerUseCase consulta y completa la configuración del emisor.
type IssuerUseCase struct {
	companyRepo       repository.CompanyRepository
	establishmentRepo repository.EstablishmentRepository
	log               zerolog.Logger
}

// NewIssuerUseCase construye el caso de uso.
func NewIssuerUseCase(companyRepo repository.CompanyRepository, establishmentRepo repository.EstablishmentRepository, log zerolog.Logger) *IssuerUseCase {
	return &IssuerUseCase{
		companyRepo:       companyRepo,
		establishmentRepo: establishmentRepo,
		log:               log.With().Str("component", "issuer").Logger(),
	}
}

// Get devuelve la empresa y sus establecimientos.
func (uc *IssuerUseCase) Get(ctx context.Context, companyID string) (*Issuer, error) {
	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	ests, err := uc.establishmentRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &Issuer{Company: company, Establishments: ests}, nil
}

// AddEstablishment registra un establecimiento de la empresa. Los códigos deben
// poder formar el número de control.
func (uc *IssuerUseCase) AddEstablishment(ctx context.Context, companyID string, est *entity.Establishment) error {
	if est == nil {
		return domain.ErrInvalidInput
	}
	est.CompanyID = companyID
	if est.ID == "" {
		est.ID = uuid.New().String()
	}
	if est.Type == "" {
		est.Type = pkgmh.EstablishmentBranch
	}
	est.IsActive = true
	if err := dte.CheckEstablishment(est); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := uc.establishmentRepo.Create(ctx, est); err != nil {
		return err
	}
	code, pos := est.ControlCode()
	uc.log.Info().
		Str("company_id", companyID).
		Str("establishment_id", est.ID).
		Str("codigo", code+pos).
		Msg("establecimiento registrado")
	return nil
}
