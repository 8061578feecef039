package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/dte-sv/internal/application/dto"
	"github.com/jhoicas/dte-sv/internal/application/issuance"
)

// IssuerHandler expone la configuración del emisor del token.
type IssuerHandler struct {
	uc       *issuance.IssuerUseCase
	validate *validator.Validate
}

// NewIssuerHandler construye el handler inyectando el caso de uso.
func NewIssuerHandler(uc *issuance.IssuerUseCase) *IssuerHandler {
	return &IssuerHandler{uc: uc, validate: newValidator()}
}

// Get godoc
// @Summary      Emisor del token
// @Tags         issuer
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.IssuerResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/dte/issuer [get]
func (h *IssuerHandler) Get(c *fiber.Ctx) error {
	issuer, err := h.uc.Get(c.UserContext(), GetCompanyID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewIssuerResponse(issuer.Company, issuer.Establishments))
}

// AddEstablishment godoc
// @Summary      Registrar establecimiento / punto de venta
// @Tags         issuer
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EstablishmentRequest  true  "Establecimiento"
// @Success      201   {object}  dto.EstablishmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/dte/issuer/establishments [post]
func (h *IssuerHandler) AddEstablishment(c *fiber.Ctx) error {
	var in dto.EstablishmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.validate.Struct(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "establecimiento no válido",
			Details: validationDetails(err),
		})
	}
	est := in.ToEntity()
	if err := h.uc.AddEstablishment(c.UserContext(), GetCompanyID(c), est); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewEstablishmentResponse(est))
}
