package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/dte-sv/internal/application/dto"
	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// DTEHandler maneja la compilación, transmisión, consulta e invalidación de DTE (protegido).
type DTEHandler struct {
	compileUC    *issuance.CompileDocumentUseCase
	orchestrator *issuance.Orchestrator
	invalidateUC *issuance.InvalidateUseCase
	validate     *validator.Validate
	log          zerolog.Logger
}

// NewDTEHandler construye el handler.
func NewDTEHandler(
	compileUC *issuance.CompileDocumentUseCase,
	orchestrator *issuance.Orchestrator,
	invalidateUC *issuance.InvalidateUseCase,
	log zerolog.Logger,
) *DTEHandler {
	return &DTEHandler{
		compileUC:    compileUC,
		orchestrator: orchestrator,
		invalidateUC: invalidateUC,
		validate:     newValidator(),
		log:          log.With().Str("component", "http.dte").Logger(),
	}
}

// Compile godoc
// @Summary      Compilar factura a DTE
// @Description  Idempotente: recompilar sin cambios devuelve los mismos identificadores (200).
// @Tags         dte
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      201  {object}  dto.CompileResponse
// @Success      200  {object}  dto.CompileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/dte/invoices/{id}/compile [post]
func (h *DTEHandler) Compile(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	res, err := h.compileUC.Compile(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		h.logFailure(err, c.Params("id"), "compile")
		return respondError(c, err)
	}
	status := fiber.StatusCreated
	if res.Reused {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.CompileResponse{
		Document:   dto.NewIssuedDocumentResponse(res.Document),
		Reused:     res.Reused,
		Superseded: res.Superseded,
		DTE:        res.Document.Document,
	})
}

// Submit godoc
// @Summary      Firmar y transmitir al MH
// @Description  Compila (idempotente) y dispara la firma y transmisión en segundo plano.
// @Tags         dte
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      202  {object}  dto.IssuedDocumentResponse
// @Success      200  {object}  dto.IssuedDocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/dte/invoices/{id}/submit [post]
func (h *DTEHandler) Submit(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	res, err := h.compileUC.Compile(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		h.logFailure(err, c.Params("id"), "submit")
		return respondError(c, err)
	}
	if res.Document.Status == entity.DTEStatusProcessed {
		return c.Status(fiber.StatusOK).JSON(dto.NewIssuedDocumentResponse(res.Document))
	}
	h.orchestrator.ProcessAsync(res.Document.ID)
	return c.Status(fiber.StatusAccepted).JSON(dto.NewIssuedDocumentResponse(res.Document))
}

// Status godoc
// @Summary      Estado del DTE vigente de la factura
// @Tags         dte
// @Security     Bearer
// @Produce      json
// @Param        id       path   string  true   "ID de la factura"
// @Param        refresh  query  bool    false  "consultar al MH si quedó firmado o en error"
// @Success      200  {object}  dto.IssuedDocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/dte/invoices/{id} [get]
func (h *DTEHandler) Status(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	doc, err := h.orchestrator.Status(c.UserContext(), companyID, c.Params("id"), c.QueryBool("refresh"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewIssuedDocumentResponse(doc))
}

// Preview godoc
// @Summary      Vista previa de un DTE
// @Description  Compila una factura en línea sin reservar correlativo (número de control con 0).
// @Tags         dte
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.InvoiceRecordRequest  true  "Factura"
// @Success      200   {object}  dto.PreviewResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/dte/preview [post]
func (h *DTEHandler) Preview(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.InvoiceRecordRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.validate.Struct(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "la factura no es válida",
			Details: validationDetails(err),
		})
	}
	in.CompanyID = companyID
	rec, err := in.ToEntity()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()})
	}
	compiled, err := h.compileUC.Preview(c.UserContext(), rec)
	if err != nil {
		h.logFailure(err, rec.ID, "preview")
		return respondError(c, err)
	}
	return c.JSON(dto.PreviewResponse{
		TipoDte:       compiled.TypeCode,
		Version:       compiled.Version,
		NumeroControl: compiled.Identifiers.ControlNumber,
		DTE:           compiled.JSON,
	})
}

// Invalidate godoc
// @Summary      Invalidar un DTE procesado (solo admin)
// @Tags         dte
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.InvalidationRequest  true  "Evento de invalidación"
// @Success      201   {object}  dto.InvalidationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.InvalidationResponse
// @Router       /api/dte/invalidations [post]
func (h *DTEHandler) Invalidate(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.InvalidationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.validate.Struct(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "solicitud de invalidación no válida",
			Details: validationDetails(err),
		})
	}
	ev, err := h.invalidateUC.Invalidate(c.UserContext(), companyID, in)
	if err != nil {
		h.logFailure(err, in.CodigoGeneracion, "invalidate")
		return respondError(c, err)
	}
	status := fiber.StatusCreated
	if ev.Status != entity.DTEStatusProcessed {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(dto.NewInvalidationResponse(ev))
}

func (h *DTEHandler) logFailure(err error, ref, op string) {
	ev := h.log.Error()
	if issuance.IsCompileError(err) {
		ev = h.log.Warn()
	}
	ev.Err(err).Str("ref", ref).Str("op", op).Msg("operación DTE fallida")
}
