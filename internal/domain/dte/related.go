package dte

import (
	"strings"
	"time"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

// DocumentoRelacionado referencia al documento que una nota ajusta.
type DocumentoRelacionado struct {
	TipoDocumento   string `json:"tipoDocumento"`
	TipoGeneracion  int    `json:"tipoGeneracion"`
	NumeroDocumento string `json:"numeroDocumento"`
	FechaEmision    string `json:"fechaEmision"`
}

// LinkRelated arma documentoRelacionado. Para los tipos que no lo exigen devuelve
// nil, que se serializa como null.
func LinkRelated(rec *entity.InvoiceRecord, rules *RuleSet) ([]DocumentoRelacionado, error) {
	if !rules.RelatedRequired {
		return nil, nil
	}
	ref := rec.Related
	if ref == nil || strings.TrimSpace(ref.ControlNumber) == "" {
		return nil, classErr(ErrMissingRelatedDocument, "DTE %s sin documento original", rules.Code)
	}
	if len(rules.RelatedTypes) > 0 && !contains(rules.RelatedTypes, ref.DocumentType) {
		return nil, classErr(ErrInvalidRelatedDocument, "tipo %q no puede ajustarse con DTE %s", ref.DocumentType, rules.Code)
	}
	number := strings.TrimSpace(ref.ControlNumber)
	if strings.HasPrefix(number, controlPrefix+"-") && !ValidControlNumber(number) {
		return nil, classErr(ErrInvalidRelatedDocument, "número de control %q", number)
	}
	if ref.IssueDate.IsZero() {
		return nil, classErr(ErrInvalidRelatedDocument, "documento %s sin fecha de emisión", number)
	}
	return []DocumentoRelacionado{{
		TipoDocumento:   ref.DocumentType,
		TipoGeneracion:  mh.GenerationPhysical,
		NumeroDocumento: number,
		FechaEmision:    ref.IssueDate.Format(time.DateOnly),
	}}, nil
}

// Extension datos de entrega y recepción del documento.
type Extension struct {
	NombEntrega   *string `json:"nombEntrega"`
	DocuEntrega   *string `json:"docuEntrega"`
	NombRecibe    *string `json:"nombRecibe"`
	DocuRecibe    *string `json:"docuRecibe"`
	Observaciones *string `json:"observaciones"`
	PlacaVehiculo *string `json:"placaVehiculo"`
}

// buildExtension nil para los tipos sin extensión; en los demás, el bloque siempre presente.
func buildExtension(rec *entity.InvoiceRecord, rules *RuleSet) *Extension {
	if !rules.HasExtension() {
		return nil
	}
	ext := &Extension{Observaciones: cleanOrNil(rec.Observations, 3000)}
	if d := rec.Delivery; d != nil {
		ext.NombEntrega = cleanOrNil(d.DeliveredBy, 100)
		ext.DocuEntrega = trimOrNil(d.DeliveredByDoc, 25)
		ext.NombRecibe = cleanOrNil(d.ReceivedBy, 100)
		ext.DocuRecibe = trimOrNil(d.ReceivedByDoc, 25)
		ext.PlacaVehiculo = cleanOrNil(d.VehiclePlate, 10)
	}
	return ext
}
