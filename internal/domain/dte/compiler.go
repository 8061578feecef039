package dte

import (
	"context"
	"time"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

// DefaultLocation zona horaria de emisión.
const DefaultLocation = "America/El_Salvador"

// Config datos del emisor y del entorno necesarios para compilar.
type Config struct {
	Environment   string // mh.EnvironmentTest o mh.EnvironmentProduction
	Company       *entity.Company
	Establishment *entity.Establishment
	Sequences     NumberingStore
	Location      *time.Location
	Now           func() time.Time
	NewCode       func() string
}

func (c Config) ambiente() string {
	if c.Environment == mh.EnvironmentProduction {
		return mh.EnvironmentProduction
	}
	return mh.EnvironmentTest
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Config) newCode() string {
	if c.NewCode != nil {
		return c.NewCode()
	}
	return NewGenerationCode()
}

func (c Config) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	if loc, err := time.LoadLocation(DefaultLocation); err == nil {
		return loc
	}
	return time.FixedZone("CST", -6*60*60)
}

// CompiledDocument DTE compilado y validado, listo para firmar.
type CompiledDocument struct {
	TypeCode    string
	Version     int
	Identifiers entity.IssuedIdentifiers
	Totals      Totals
	Lines       []LineResult
	JSON        []byte
	Tree        map[string]any
}

// Compile transforma la factura en el DTE del tipo indicado por rules.
//
// Las validaciones de líneas, partes y documento relacionado se ejecutan antes de
// reservar el correlativo, de modo que un error de negocio no consume números.
// Si rec.Identifiers ya está poblado se reutiliza y el resultado es idéntico byte a byte.
func Compile(ctx context.Context, rec *entity.InvoiceRecord, rules *RuleSet, cfg Config) (*CompiledDocument, error) {
	if rec.DocumentType != "" && rec.DocumentType != rules.Code {
		return nil, configErr(ErrUnknownDocumentType, "factura %s de tipo %q compilada con reglas %s", rec.ID, rec.DocumentType, rules.Code)
	}
	if rec.Classification == "" {
		return nil, classErr(ErrMissingClassification, "factura %s", rec.ID)
	}
	if err := requireEstablishment(cfg.Establishment); err != nil {
		return nil, err
	}

	lines, totals, err := ClassifyLines(rec, rules)
	if err != nil {
		return nil, err
	}
	emisor, err := buildEmisor(rec, rules, cfg)
	if err != nil {
		return nil, err
	}
	receptor, err := buildReceptor(rec, rules, OperationTotal(rec, rules, totals))
	if err != nil {
		return nil, err
	}
	related, err := LinkRelated(rec, rules)
	if err != nil {
		return nil, err
	}

	ids, err := assignIdentifiers(ctx, rec, rules, cfg)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = l.Item
	}
	doc := &Document{
		Identificacion:       buildIdentificacion(rec, rules, cfg, ids),
		DocumentoRelacionado: related,
		Emisor:               emisor,
		CuerpoDocumento:      items,
		Resumen:              BuildSummary(rec, rules, totals),
		Extension:            buildExtension(rec, rules),
	}
	if rules.ReceptorKey == "sujetoExcluido" {
		doc.SujetoExcluido = receptor
	} else {
		doc.Receptor = receptor
	}

	var extraNull []string
	if isFinalConsumer(rec) && rules.Shape != ShapeExcluded && rules.Shape != ShapeExport {
		extraNull = append(extraNull, "resumen.tributos", "cuerpoDocumento[].tributos")
	}

	raw, tree, err := Assemble(doc, rules, extraNull...)
	if err != nil {
		return nil, err
	}
	return &CompiledDocument{
		TypeCode:    rules.Code,
		Version:     rules.Version,
		Identifiers: ids,
		Totals:      totals,
		Lines:       lines,
		JSON:        raw,
		Tree:        tree,
	}, nil
}

// CompileRecord busca las reglas del tipo de la factura y compila.
func CompileRecord(ctx context.Context, rec *entity.InvoiceRecord, cfg Config) (*CompiledDocument, error) {
	rules, err := RulesFor(rec.DocumentType)
	if err != nil {
		return nil, err
	}
	return Compile(ctx, rec, rules, cfg)
}
