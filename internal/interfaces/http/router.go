package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/dte-sv/internal/application/dto"
	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	"github.com/jhoicas/dte-sv/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompileUC    *issuance.CompileDocumentUseCase
	Orchestrator *issuance.Orchestrator
	InvalidateUC *issuance.InvalidateUseCase
	IssuerUC     *issuance.IssuerUseCase
	CompanyRepo  repository.CompanyRepository
	JWTSecret    string
	Mode         string
	// HealthCheck verifica la base de datos; nil = sin base (almacenamiento en memoria).
	HealthCheck func(ctx context.Context) error
	Log         zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Health (público)
	app.Get("/health", func(c *fiber.Ctx) error {
		resp := dto.HealthResponse{Status: "ok", Mode: deps.Mode}
		if deps.HealthCheck != nil {
			resp.DB = "ok"
			if err := deps.HealthCheck(c.UserContext()); err != nil {
				resp.Status, resp.DB = "degraded", "unreachable"
				return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
			}
		}
		return c.JSON(resp)
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token y empresa emisora activa)
	protected := api.Group("/dte", AuthMiddleware(deps.JWTSecret), RequireActiveIssuer(deps.CompanyRepo))
	h := NewDTEHandler(deps.CompileUC, deps.Orchestrator, deps.InvalidateUC, deps.Log)

	writers := RequireRole(jwt.RoleAdmin, jwt.RoleEmisor)
	readers := RequireRole(jwt.RoleAdmin, jwt.RoleEmisor, jwt.RoleConsulta)

	invoices := protected.Group("/invoices")
	invoices.Post("/:id/compile", writers, h.Compile)
	invoices.Post("/:id/submit", writers, h.Submit)
	invoices.Get("/:id", readers, h.Status)

	protected.Post("/preview", writers, h.Preview)

	// Invalidación (solo admin)
	protected.Post("/invalidations", RequireRole(jwt.RoleAdmin), h.Invalidate)

	// Emisor
	if deps.IssuerUC != nil {
		issuer := NewIssuerHandler(deps.IssuerUC)
		protected.Get("/issuer", readers, issuer.Get)
		protected.Post("/issuer/establishments", RequireRole(jwt.RoleAdmin), issuer.AddEstablishment)
	}
}
