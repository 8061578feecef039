package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/infrastructure/archive"
	infmh "github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	"github.com/jhoicas/dte-sv/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/dte-sv/internal/interfaces/http"
	"github.com/jhoicas/dte-sv/pkg/config"
	"github.com/jhoicas/dte-sv/pkg/logger"
)

// zonaSV hora oficial de El Salvador (UTC-6, sin horario de verano).
var zonaSV = time.FixedZone("CST", -6*60*60)

var errMissingCert = errors.New("MH_CERT_PATH es obligatorio en modo test/prod")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("mh_mode", cfg.MH.Mode).
		Str("ambiente", cfg.MH.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), "up", log.Component("migrate").Zerolog()); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB,
		postgres.WithQueryLog(log.Component("postgres").Zerolog()),
		postgres.WithApplicationName(cfg.App.Name),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	establishmentRepo := postgres.NewEstablishmentRepository(pool)
	invoiceRepo := postgres.NewInvoiceRecordRepository(pool)
	docRepo := postgres.NewIssuedDocumentRepository(pool)
	invalidationRepo := postgres.NewInvalidationRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Firma JWS RS512: en dev sin certificado se usa una llave efímera.
	key, err := signingKey(cfg.MH)
	if err != nil {
		log.Fatal().Err(err).Msg("llave de firma")
	}
	if cfg.MH.CertPath == "" {
		log.Warn().Msg("MH_CERT_PATH vacío: firmando con llave RSA efímera (solo dev)")
	}
	signer := infmh.NewJWSSigner(key)

	// Cliente REST MH: solo se usa si Mode es "test" o "prod".
	var gateway issuance.Gateway
	if cfg.MH.Mode != config.ModeDev {
		var cache infmh.TokenCache
		if cfg.Redis.Addr != "" {
			redisCache, err := infmh.NewRedisTokenCache(ctx, infmh.RedisOptions{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("caché de token en Redis")
			}
			cache = redisCache
		}
		gateway = infmh.NewClient(infmh.ClientConfig{
			BaseURL:    cfg.MH.BaseURLOrDefault(),
			User:       cfg.MH.User,
			Password:   cfg.MH.Password,
			MaxRetries: cfg.MH.MaxRetries,
			RetryDelay: cfg.MH.RetryDelay,
			Timeout:    cfg.MH.Timeout,
		}, cache, log.Zerolog())
	}

	// Archivo S3 de JWS y acuses (opcional)
	var archiver issuance.Archiver
	if cfg.Archive.Enabled() {
		s3Archive, err := archive.NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			log.Fatal().Err(err).Msg("archivo S3")
		}
		archiver = s3Archive
	}

	settings := issuance.Settings{
		Mode:        cfg.MH.Mode,
		Environment: cfg.MH.Environment,
		Location:    zonaSV,
		Timeout:     cfg.MH.Timeout + 30*time.Second,
	}
	zl := log.Zerolog()

	compileUC := issuance.NewCompileDocumentUseCase(invoiceRepo, companyRepo, establishmentRepo, txRunner, settings, zl)
	// Orchestrator: JSON canónico → Firma JWS → Recepción MH → Update DB → Archivo
	orchestrator := issuance.NewOrchestrator(docRepo, companyRepo, signer, gateway, archiver, settings, zl)
	invalidateUC := issuance.NewInvalidateUseCase(
		docRepo, invalidationRepo, companyRepo, establishmentRepo,
		signer, gateway, settings, zl,
	)
	issuerUC := issuance.NewIssuerUseCase(companyRepo, establishmentRepo, zl)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "DTE El Salvador API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompileUC:    compileUC,
		Orchestrator: orchestrator,
		InvalidateUC: invalidateUC,
		IssuerUC:     issuerUC,
		CompanyRepo:  companyRepo,
		JWTSecret:    cfg.JWT.Secret,
		Mode:         cfg.MH.Mode,
		HealthCheck:  pool.Ping,
		Log:          zl,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Transmisiones en curso terminan antes de cerrar el pool.
	orchestrator.Wait()
	log.Info().Msg("aplicación detenida")
}

func signingKey(cfg config.MHConfig) (*rsa.PrivateKey, error) {
	if cfg.CertPath != "" {
		return infmh.LoadSigningKey(cfg.CertPath, cfg.CertPassword)
	}
	if cfg.Mode != config.ModeDev {
		return nil, errMissingCert
	}
	return rsa.GenerateKey(rand.Reader, 2048)
}
