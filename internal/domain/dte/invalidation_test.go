package dte_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eventCode       = "7C0B6A0E-5F1D-4E44-9C1C-0E2B1D7E9A11"
	replacementCode = "2A4E7F10-8B3C-4D5E-A6F7-1B2C3D4E5F60"
)

func processedDocument(t *testing.T, rec *entity.InvoiceRecord) *entity.IssuedDocument {
	t.Helper()
	doc := compile(t, rec, &countingStore{})
	return &entity.IssuedDocument{
		ID:             "doc-1",
		InvoiceID:      rec.ID,
		DocumentType:   doc.TypeCode,
		Version:        doc.Version,
		GenerationCode: doc.Identifiers.GenerationCode,
		ControlNumber:  doc.Identifiers.ControlNumber,
		Document:       doc.JSON,
		Status:         entity.DTEStatusProcessed,
		ReceptionSeal:  "2026SELLO0001",
	}
}

func invalidationEvent(kind int) *entity.Invalidation {
	return &entity.Invalidation{
		GenerationCode:       eventCode,
		Type:                 kind,
		Reason:               "Error en el precio unitario",
		ReplacementCode:      replacementCode,
		ResponsibleName:      "Ana Martínez",
		ResponsibleDocType:   mh.IDDUI,
		ResponsibleDocNumber: "04567890-1",
		RequesterName:        "Luis Pérez",
		RequesterDocType:     mh.IDDUI,
		RequesterDocNumber:   "01234567-8",
	}
}

func decodeJSON(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestCompileInvalidation_CCF(t *testing.T) {
	rec := record(mh.DTECCF, entity.FiscalTaxpayer, line("100.00", "2", mh.TaxVAT))
	doc := processedDocument(t, rec)

	raw, err := dte.CompileInvalidation(doc, invalidationEvent(mh.InvalidationError), testConfig(nil))
	require.NoError(t, err)
	tree := decodeJSON(t, raw)

	ident := obj(t, tree, "identificacion")
	assert.Equal(t, "2", num(t, ident, "version"))
	assert.Equal(t, eventCode, ident["codigoGeneracion"])
	assert.Equal(t, "2026-03-15", ident["fecAnula"])
	assert.Equal(t, "08:30:05", ident["horAnula"])

	d := obj(t, tree, "documento")
	assert.Equal(t, mh.DTECCF, d["tipoDte"])
	assert.Equal(t, doc.ControlNumber, d["numeroControl"])
	assert.Equal(t, "2026SELLO0001", d["selloRecibido"])
	assert.Equal(t, "2026-03-15", d["fecEmi"])
	assert.Equal(t, "26.00", num(t, d, "montoIva"))
	assert.Equal(t, replacementCode, d["codigoGeneracionR"])
	assert.Equal(t, mh.IDNIT, d["tipoDocumento"])
	assert.Equal(t, "06142505851021", d["numDocumento"])

	m := obj(t, tree, "motivo")
	assert.Equal(t, "1", num(t, m, "tipoAnulacion"))
	assert.Equal(t, "04567890", m["numDocResponsable"], "el DUI se normaliza a 8 dígitos")

	e := obj(t, tree, "emisor")
	assert.Equal(t, "06140101901013", e["nit"])
	assert.Equal(t, "M001", e["codEstableMH"])
}

func TestCompileInvalidation_FacturaConsumidorFinal_SinReemplazo(t *testing.T) {
	rec := record(mh.DTEInvoice, entity.FiscalFinalConsumer, line("11.30", "1", mh.TaxVAT))
	rec.Buyer = entity.Party{Name: "Cliente de mostrador"}
	doc := processedDocument(t, rec)

	ev := invalidationEvent(mh.InvalidationRescind)
	ev.ReplacementCode = ""
	raw, err := dte.CompileInvalidation(doc, ev, testConfig(nil))
	require.NoError(t, err)
	d := obj(t, decodeJSON(t, raw), "documento")

	requireNullKey(t, d, "codigoGeneracionR")
	requireNullKey(t, d, "numDocumento")
	assert.Equal(t, "1.30", num(t, d, "montoIva"))
}

func TestCompileInvalidation_Errores(t *testing.T) {
	rec := record(mh.DTECCF, entity.FiscalTaxpayer, line("10", "1", mh.TaxVAT))
	doc := processedDocument(t, rec)

	cases := map[string]func(ev *entity.Invalidation, d *entity.IssuedDocument){
		"tipo fuera de rango":       func(ev *entity.Invalidation, _ *entity.IssuedDocument) { ev.Type = 4 },
		"tipo 3 sin reemplazo":      func(ev *entity.Invalidation, _ *entity.IssuedDocument) { ev.Type = 3; ev.ReplacementCode = "" },
		"código de evento inválido": func(ev *entity.Invalidation, _ *entity.IssuedDocument) { ev.GenerationCode = "abc" },
		"sin responsable":           func(ev *entity.Invalidation, _ *entity.IssuedDocument) { ev.ResponsibleName = " " },
		"sin sello":                 func(_ *entity.Invalidation, d *entity.IssuedDocument) { d.ReceptionSeal = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ev := invalidationEvent(mh.InvalidationError)
			d := *doc
			mutate(ev, &d)

			_, err := dte.CompileInvalidation(&d, ev, testConfig(nil))
			require.Error(t, err)
			assert.ErrorIs(t, err, dte.ErrInvalidInvalidation)
			var ce *dte.ClassificationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}
