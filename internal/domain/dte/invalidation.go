package dte

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

// InvalidationVersion versión del esquema del evento de invalidación.
const InvalidationVersion = 2

// Anulacion evento de invalidación de un DTE procesado.
type Anulacion struct {
	Identificacion AnulacionIdentificacion `json:"identificacion"`
	Emisor         AnulacionEmisor         `json:"emisor"`
	Documento      AnulacionDocumento      `json:"documento"`
	Motivo         AnulacionMotivo         `json:"motivo"`
}

type AnulacionIdentificacion struct {
	Version          int    `json:"version"`
	Ambiente         string `json:"ambiente"`
	CodigoGeneracion string `json:"codigoGeneracion"`
	FecAnula         string `json:"fecAnula"`
	HorAnula         string `json:"horAnula"`
}

type AnulacionEmisor struct {
	NIT                 string  `json:"nit"`
	Nombre              string  `json:"nombre"`
	TipoEstablecimiento string  `json:"tipoEstablecimiento"`
	NomEstablecimiento  *string `json:"nomEstablecimiento"`
	CodEstableMH        *string `json:"codEstableMH"`
	CodEstable          *string `json:"codEstable"`
	CodPuntoVentaMH     *string `json:"codPuntoVentaMH"`
	CodPuntoVenta       *string `json:"codPuntoVenta"`
	Telefono            *string `json:"telefono"`
	Correo              string  `json:"correo"`
}

type AnulacionDocumento struct {
	TipoDte           string  `json:"tipoDte"`
	CodigoGeneracion  string  `json:"codigoGeneracion"`
	SelloRecibido     string  `json:"selloRecibido"`
	NumeroControl     string  `json:"numeroControl"`
	FecEmi            string  `json:"fecEmi"`
	MontoIva          *Amount `json:"montoIva"`
	CodigoGeneracionR *string `json:"codigoGeneracionR"`
	TipoDocumento     *string `json:"tipoDocumento"`
	NumDocumento      *string `json:"numDocumento"`
	Nombre            *string `json:"nombre"`
	Telefono          *string `json:"telefono"`
	Correo            *string `json:"correo"`
}

type AnulacionMotivo struct {
	TipoAnulacion     int     `json:"tipoAnulacion"`
	MotivoAnulacion   *string `json:"motivoAnulacion"`
	NombreResponsable string  `json:"nombreResponsable"`
	TipDocResponsable string  `json:"tipDocResponsable"`
	NumDocResponsable string  `json:"numDocResponsable"`
	NombreSolicita    string  `json:"nombreSolicita"`
	TipDocSolicita    string  `json:"tipDocSolicita"`
	NumDocSolicita    string  `json:"numDocSolicita"`
}

// CompileInvalidation arma el evento de invalidación a partir del DTE procesado y su JSON original.
// El estado del documento lo verifica quien llama; aquí solo se valida el contenido del evento.
func CompileInvalidation(doc *entity.IssuedDocument, ev *entity.Invalidation, cfg Config) ([]byte, error) {
	if doc == nil || ev == nil {
		return nil, classErr(ErrInvalidInvalidation, "documento o evento vacío")
	}
	if ev.Type < mh.InvalidationError || ev.Type > mh.InvalidationOther {
		return nil, classErr(ErrInvalidInvalidation, "tipo de anulación %d", ev.Type)
	}
	if !ValidGenerationCode(ev.GenerationCode) {
		return nil, classErr(ErrInvalidInvalidation, "código de generación del evento %q", ev.GenerationCode)
	}
	needsReplacement := ev.Type == mh.InvalidationError || ev.Type == mh.InvalidationOther
	if needsReplacement && !ValidGenerationCode(ev.ReplacementCode) {
		return nil, classErr(ErrInvalidInvalidation, "el tipo %d requiere el código del documento que reemplaza", ev.Type)
	}
	if strings.TrimSpace(ev.ResponsibleName) == "" || strings.TrimSpace(ev.ResponsibleDocNumber) == "" {
		return nil, classErr(ErrInvalidInvalidation, "falta el responsable de la anulación")
	}
	if doc.ReceptionSeal == "" {
		return nil, classErr(ErrInvalidInvalidation, "el DTE %s no tiene sello de recepción", doc.GenerationCode)
	}

	emisor, err := buildEmisor(&entity.InvoiceRecord{}, &RuleSet{}, cfg)
	if err != nil {
		return nil, err
	}
	tree, err := decodeTree(doc.Document)
	if err != nil {
		return nil, err
	}

	at := cfg.now().In(cfg.location())
	a := Anulacion{
		Identificacion: AnulacionIdentificacion{
			Version:          InvalidationVersion,
			Ambiente:         cfg.ambiente(),
			CodigoGeneracion: ev.GenerationCode,
			FecAnula:         at.Format(time.DateOnly),
			HorAnula:         at.Format(time.TimeOnly),
		},
		Emisor: AnulacionEmisor{
			NIT:                 emisor.NIT,
			Nombre:              emisor.Nombre,
			TipoEstablecimiento: emisor.TipoEstablecimiento,
			NomEstablecimiento:  cleanOrNil(cfg.Establishment.Name, maxCommercial),
			CodEstableMH:        emisor.CodEstableMH,
			CodEstable:          emisor.CodEstable,
			CodPuntoVentaMH:     emisor.CodPuntoVentaMH,
			CodPuntoVenta:       emisor.CodPuntoVenta,
			Telefono:            trimOrNil(emisor.Telefono, maxPhone),
			Correo:              emisor.Correo,
		},
		Documento: AnulacionDocumento{
			TipoDte:          doc.DocumentType,
			CodigoGeneracion: doc.GenerationCode,
			SelloRecibido:    doc.ReceptionSeal,
			NumeroControl:    doc.ControlNumber,
			FecEmi:           stringAt(tree, "identificacion", "fecEmi"),
			MontoIva:         vatOf(tree),
		},
		Motivo: AnulacionMotivo{
			TipoAnulacion:     ev.Type,
			MotivoAnulacion:   cleanOrNil(ev.Reason, maxComplement),
			NombreResponsable: CleanText(ev.ResponsibleName, 100),
			TipDocResponsable: ev.ResponsibleDocType,
			NumDocResponsable: mh.NormalizeDocument(ev.ResponsibleDocType, ev.ResponsibleDocNumber),
			NombreSolicita:    CleanText(ev.RequesterName, 100),
			TipDocSolicita:    ev.RequesterDocType,
			NumDocSolicita:    mh.NormalizeDocument(ev.RequesterDocType, ev.RequesterDocNumber),
		},
	}
	if needsReplacement {
		a.Documento.CodigoGeneracionR = strPtr(ev.ReplacementCode)
	}
	fillInvalidatedBuyer(&a.Documento, tree)

	out, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("dte: serializar invalidación: %w", err)
	}
	return out, nil
}

// fillInvalidatedBuyer copia la identificación del receptor (o sujeto excluido) del DTE original.
func fillInvalidatedBuyer(d *AnulacionDocumento, tree map[string]any) {
	party, _ := tree["receptor"].(map[string]any)
	if party == nil {
		party, _ = tree["sujetoExcluido"].(map[string]any)
	}
	if party == nil {
		return
	}
	if nit, ok := party["nit"].(string); ok && nit != "" {
		d.TipoDocumento, d.NumDocumento = strPtr(mh.IDNIT), strPtr(nit)
	} else {
		d.TipoDocumento = optString(party, "tipoDocumento")
		d.NumDocumento = optString(party, "numDocumento")
	}
	d.Nombre = optString(party, "nombre")
	d.Telefono = optString(party, "telefono")
	d.Correo = optString(party, "correo")
}

// vatOf IVA del documento original: totalIva (factura) o el tributo 20 del resumen (CCF y notas).
func vatOf(tree map[string]any) *Amount {
	resumen, _ := tree["resumen"].(map[string]any)
	if resumen == nil {
		return nil
	}
	if _, ok := resumen["totalIva"]; ok {
		a := Money(numberField(resumen, "totalIva"))
		return &a
	}
	tributos, _ := resumen["tributos"].([]any)
	for _, t := range tributos {
		m, _ := t.(map[string]any)
		if m != nil && m["codigo"] == mh.TaxVAT {
			a := Money(numberField(m, "valor"))
			return &a
		}
	}
	return nil
}

func stringAt(tree map[string]any, block, key string) string {
	m, _ := tree[block].(map[string]any)
	s, _ := m[key].(string)
	return s
}

func optString(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
