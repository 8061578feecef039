package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dte-sv/internal/application/dto"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// issuerLookup es el contrato mínimo que necesita el middleware para verificar al emisor.
// Lo implementa cualquier repository.CompanyRepository.
type issuerLookup interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}

// RequireActiveIssuer verifica que la empresa del token JWT exista y esté activa
// como emisora de DTE. Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - 401 Unauthorized → no hay company_id en el contexto.
//   - 403 Forbidden → empresa no registrada, suspendida o inactiva.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la DB.
func RequireActiveIssuer(companies issuerLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID := GetCompanyID(c)
		if companyID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "company_id no encontrado en el token",
			})
		}

		company, err := companies.GetByID(c.UserContext(), companyID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "ISSUER_CHECK_FAILED",
				Message: "no se pudo verificar la empresa emisora, intente más tarde",
			})
		}
		if company == nil {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "ISSUER_NOT_REGISTERED",
				Message: "la empresa no está registrada como emisora",
			})
		}
		// Status vacío se trata como activa (registros cargados sin estado).
		if company.Status != "" && company.Status != entity.CompanyStatusActive {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "ISSUER_DISABLED",
				Message: "la empresa '" + company.Name + "' no está activa para emitir DTE",
			})
		}

		return c.Next()
	}
}
