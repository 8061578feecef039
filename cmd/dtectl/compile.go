package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/jhoicas/dte-sv/internal/application/dto"
	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/infrastructure/memory"
	"github.com/jhoicas/dte-sv/pkg/config"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

var zonaSV = time.FixedZone("CST", -6*60*60)

var (
	compileIssuer      string
	compileOutput      string
	compileEnvironment string
	compilePreview     bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [factura.json]",
	Short: "Compila una factura a su DTE sin base de datos",
	Long: `Compila una factura (mismo formato que POST /api/dte/preview) al JSON
canónico del DTE usando la configuración del emisor indicada con --issuer.

El correlativo asignado es last_sequence + 1 del archivo del emisor;
con --preview se usa el correlativo 0 como en la vista previa de la API.`,
	Example: `  dtectl compile factura.json --issuer emisor.json
  dtectl compile ccf.json --issuer emisor.json --environment 01 -o ccf-dte.json
  dtectl compile factura.json --issuer emisor.json --preview`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileIssuer, "issuer", "", "archivo JSON con la empresa y el establecimiento emisor")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "archivo de salida (por defecto stdout)")
	compileCmd.Flags().StringVar(&compileEnvironment, "environment", mh.EnvironmentTest, "ambiente del DTE: 00 pruebas, 01 producción")
	compileCmd.Flags().BoolVar(&compilePreview, "preview", false, "no consumir correlativo (número de control con 0)")
	_ = compileCmd.MarkFlagRequired("issuer")
}

func runCompile(cmd *cobra.Command, args []string) error {
	log := cliLogger("compile")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	dto.RegisterDecimal(validate)

	var issuer dto.IssuerFile
	if err := readJSON(compileIssuer, &issuer); err != nil {
		return err
	}
	if err := validate.Struct(&issuer); err != nil {
		return fmt.Errorf("emisor %s: %w", compileIssuer, err)
	}
	var in dto.InvoiceRecordRequest
	if err := readJSON(args[0], &in); err != nil {
		return err
	}
	if err := validate.Struct(&in); err != nil {
		return fmt.Errorf("factura %s: %w", args[0], err)
	}

	company, est := issuer.ToEntities()
	in.CompanyID = company.ID
	in.EstablishmentID = est.ID
	if in.ID == "" {
		in.ID = "factura"
	}
	rec, err := in.ToEntity()
	if err != nil {
		return fmt.Errorf("factura %s: %w", args[0], err)
	}

	companies := memory.NewCatalogStore()
	establishments := memory.NewEstablishmentStore()
	invoices := memory.NewInvoiceStore()
	seq := memory.NewSequenceStore()
	docs := memory.NewDocumentStore()
	if err := companies.Create(ctx, company); err != nil {
		return err
	}
	if err := establishments.Create(ctx, est); err != nil {
		return err
	}
	if err := invoices.Save(ctx, rec); err != nil {
		return err
	}
	seq.Set(est.ID, rec.DocumentType, issuer.LastSequence)

	uc := issuance.NewCompileDocumentUseCase(invoices, companies, establishments,
		memory.NewTxRunner(seq, docs),
		issuance.Settings{Mode: config.ModeDev, Environment: compileEnvironment, Location: zonaSV},
		log,
	)

	var out []byte
	if compilePreview {
		compiled, err := uc.Preview(ctx, rec)
		if err != nil {
			return err
		}
		out = compiled.JSON
	} else {
		res, err := uc.Compile(ctx, company.ID, rec.ID)
		if err != nil {
			return err
		}
		log.Info().
			Str("tipo_dte", res.Document.DocumentType).
			Str("numero_control", res.Document.ControlNumber).
			Str("codigo_generacion", res.Document.GenerationCode).
			Msg("DTE compilado")
		out = res.Document.Document
	}
	return writeOutput(compileOutput, out)
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("leer %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decodificar %s: %w", path, err)
	}
	return nil
}

// writeOutput escribe el JSON indentado en path o en stdout.
func writeOutput(path string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	if path == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
