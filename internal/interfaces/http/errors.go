package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dte-sv/internal/application/dto"
	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/dte"
)

// respondError traduce errores de dominio y del compilador a respuestas HTTP.
func respondError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"

	var (
		cfgErr   *dte.ConfigurationError
		classErr *dte.ClassificationError
		valErr   *dte.ValidationError
		seqErr   *dte.SequenceContentionError
	)
	switch {
	case errors.As(err, &seqErr):
		status, code = fiber.StatusConflict, "SEQUENCE_CONTENTION"
	case errors.As(err, &cfgErr):
		status, code = fiber.StatusUnprocessableEntity, "CONFIGURATION"
	case errors.As(err, &classErr):
		status, code = fiber.StatusUnprocessableEntity, "CLASSIFICATION"
	case errors.As(err, &valErr):
		status, code = fiber.StatusInternalServerError, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFinalized):
		status, code = fiber.StatusConflict, "NOT_FINALIZED"
	case errors.Is(err, domain.ErrAlreadyProcessed):
		status, code = fiber.StatusConflict, "ALREADY_PROCESSED"
	case errors.Is(err, domain.ErrNotInvalidatable):
		status, code = fiber.StatusConflict, "NOT_INVALIDATABLE"
	case errors.Is(err, domain.ErrReplacementNeeded):
		status, code = fiber.StatusUnprocessableEntity, "REPLACEMENT_REQUIRED"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "CONFLICT"
	}

	resp := dto.ErrorResponse{Code: code, Message: err.Error()}
	if valErr != nil {
		for _, v := range valErr.Violations {
			resp.Details = append(resp.Details, dto.ValidationDetail{Message: v.Error()})
		}
	}
	return c.Status(status).JSON(resp)
}
