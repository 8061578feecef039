package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// InvoiceRecordRequest factura en línea para vista previa o compilación desde archivo.
type InvoiceRecordRequest struct {
	ID              string                `json:"id"`
	CompanyID       string                `json:"company_id"`
	EstablishmentID string                `json:"establishment_id"`
	DocumentType    string                `json:"document_type" validate:"required,oneof=01 03 04 05 06 11 14"`
	Currency        string                `json:"currency" validate:"omitempty,len=3"`
	Date            string                `json:"date" validate:"required,datetime=2006-01-02"`
	Classification  string                `json:"classification" validate:"omitempty,oneof=FINAL_CONSUMER TAXPAYER EXPORT EXCLUDED_SUBJECT"`
	Buyer           PartyRequest          `json:"buyer"`
	Lines           []LineItemRequest     `json:"lines" validate:"required,min=1,max=2000,dive"`
	Installments    []InstallmentRequest  `json:"installments" validate:"omitempty,dive"`
	Settlement      string                `json:"settlement" validate:"omitempty,oneof=CASH BANK OTHER"`
	Related         *RelatedDocumentInput `json:"related,omitempty"`
	Export          *ExportRequest        `json:"export,omitempty"`
	Delivery        *DeliveryRequest      `json:"delivery,omitempty"`
	Observations    string                `json:"observations" validate:"max=3000"`
}

// PartyRequest comprador.
type PartyRequest struct {
	Name           string `json:"name" validate:"max=250"`
	CommercialName string `json:"commercial_name" validate:"max=150"`
	DocumentType   string `json:"document_type" validate:"omitempty,oneof=36 13 02 03 37"`
	DocumentNumber string `json:"document_number" validate:"max=20"`
	NRC            string `json:"nrc" validate:"max=8"`
	ActivityCode   string `json:"activity_code" validate:"max=6"`
	ActivityDesc   string `json:"activity_desc"`
	DistrictCode   string `json:"district_code" validate:"omitempty,len=4"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email" validate:"omitempty,email"`
	CountryCode    string `json:"country_code"`
	CountryName    string `json:"country_name"`
	PersonType     int    `json:"person_type" validate:"omitempty,oneof=1 2"`
}

// LineItemRequest línea de la factura.
type LineItemRequest struct {
	Kind            string          `json:"kind" validate:"omitempty,oneof=SECTION NOTE"`
	ProductCode     string          `json:"product_code" validate:"max=25"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"gte=0,lte=100"`
	UnitOfMeasure   int             `json:"unit_of_measure" validate:"min=0,max=99"`
	ItemType        int             `json:"item_type" validate:"min=0,max=4"`
	TaxCodes        []string        `json:"tax_codes"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
}

// InstallmentRequest cuota del plazo de pago.
type InstallmentRequest struct {
	DayOffset int             `json:"day_offset" validate:"min=0"`
	Percent   decimal.Decimal `json:"percent"`
}

// RelatedDocumentInput documento relacionado de una nota.
type RelatedDocumentInput struct {
	DocumentType  string `json:"document_type" validate:"required,len=2"`
	ControlNumber string `json:"control_number" validate:"required"`
	IssueDate     string `json:"issue_date" validate:"required,datetime=2006-01-02"`
}

// ExportRequest datos de exportación.
type ExportRequest struct {
	IncotermCode string          `json:"incoterm_code"`
	IncotermDesc string          `json:"incoterm_desc"`
	Insurance    decimal.Decimal `json:"insurance"`
	Freight      decimal.Decimal `json:"freight"`
	ItemType     int             `json:"item_type" validate:"omitempty,oneof=1 2 3"`
}

// DeliveryRequest entrega y recepción.
type DeliveryRequest struct {
	DeliveredBy    string `json:"delivered_by"`
	DeliveredByDoc string `json:"delivered_by_doc"`
	ReceivedBy     string `json:"received_by"`
	ReceivedByDoc  string `json:"received_by_doc"`
	VehiclePlate   string `json:"vehicle_plate"`
}

// ToEntity convierte la petición en la factura del dominio. La factura queda FINALIZED.
func (r *InvoiceRecordRequest) ToEntity() (*entity.InvoiceRecord, error) {
	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return nil, err
	}
	rec := &entity.InvoiceRecord{
		ID:              r.ID,
		CompanyID:       r.CompanyID,
		EstablishmentID: r.EstablishmentID,
		DocumentType:    r.DocumentType,
		Currency:        r.Currency,
		Date:            date,
		State:           entity.InvoiceStateFinalized,
		Classification:  entity.FiscalClassification(r.Classification),
		Buyer: entity.Party{
			Name:           r.Buyer.Name,
			CommercialName: r.Buyer.CommercialName,
			DocumentType:   r.Buyer.DocumentType,
			DocumentNumber: r.Buyer.DocumentNumber,
			NRC:            r.Buyer.NRC,
			ActivityCode:   r.Buyer.ActivityCode,
			ActivityDesc:   r.Buyer.ActivityDesc,
			DistrictCode:   r.Buyer.DistrictCode,
			Address:        r.Buyer.Address,
			Phone:          r.Buyer.Phone,
			Email:          r.Buyer.Email,
			CountryCode:    r.Buyer.CountryCode,
			CountryName:    r.Buyer.CountryName,
			PersonType:     r.Buyer.PersonType,
		},
		Settlement:   r.Settlement,
		Observations: r.Observations,
	}
	rec.ApplyDefaultClassification()
	for _, l := range r.Lines {
		rec.Lines = append(rec.Lines, entity.LineItem{
			Kind:            l.Kind,
			ProductCode:     l.ProductCode,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			UnitOfMeasure:   l.UnitOfMeasure,
			ItemType:        l.ItemType,
			TaxCodes:        l.TaxCodes,
			TaxRate:         l.TaxRate,
		})
	}
	for _, in := range r.Installments {
		rec.PaymentTerm.Installments = append(rec.PaymentTerm.Installments, entity.Installment{
			DayOffset: in.DayOffset,
			Percent:   in.Percent,
		})
	}
	if r.Related != nil {
		issued, err := time.Parse(time.DateOnly, r.Related.IssueDate)
		if err != nil {
			return nil, err
		}
		rec.Related = &entity.RelatedDocumentRef{
			DocumentType:  r.Related.DocumentType,
			ControlNumber: r.Related.ControlNumber,
			IssueDate:     issued,
		}
	}
	if r.Export != nil {
		rec.Export = &entity.ExportDetails{
			IncotermCode: r.Export.IncotermCode,
			IncotermDesc: r.Export.IncotermDesc,
			Insurance:    r.Export.Insurance,
			Freight:      r.Export.Freight,
			ItemType:     r.Export.ItemType,
		}
	}
	if r.Delivery != nil {
		d := entity.DeliveryDetails(*r.Delivery)
		rec.Delivery = &d
	}
	return rec, nil
}

// IssuedDocumentResponse estado de un DTE emitido.
type IssuedDocumentResponse struct {
	ID               string     `json:"id"`
	InvoiceID        string     `json:"invoice_id"`
	TipoDte          string     `json:"tipo_dte"`
	Version          int        `json:"version"`
	Ambiente         string     `json:"ambiente"`
	CodigoGeneracion string     `json:"codigo_generacion"`
	NumeroControl    string     `json:"numero_control"`
	Status           string     `json:"status"`
	SelloRecibido    string     `json:"sello_recibido,omitempty"`
	FhProcesamiento  *time.Time `json:"fh_procesamiento,omitempty"`
	Observaciones    string     `json:"observaciones,omitempty"`
	EmittedAt        time.Time  `json:"emitted_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewIssuedDocumentResponse arma la respuesta a partir de la entidad.
func NewIssuedDocumentResponse(d *entity.IssuedDocument) IssuedDocumentResponse {
	return IssuedDocumentResponse{
		ID:               d.ID,
		InvoiceID:        d.InvoiceID,
		TipoDte:          d.DocumentType,
		Version:          d.Version,
		Ambiente:         d.Environment,
		CodigoGeneracion: d.GenerationCode,
		NumeroControl:    d.ControlNumber,
		Status:           d.Status,
		SelloRecibido:    d.ReceptionSeal,
		FhProcesamiento:  d.ProcessedAt,
		Observaciones:    d.MHMessages,
		EmittedAt:        d.EmittedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// CompileResponse DTE compilado con su JSON canónico.
type CompileResponse struct {
	Document   IssuedDocumentResponse `json:"document"`
	Reused     bool                   `json:"reused"`
	Superseded string                 `json:"superseded,omitempty"`
	DTE        json.RawMessage        `json:"dte"`
}

// PreviewResponse resultado de la vista previa (sin número reservado).
type PreviewResponse struct {
	TipoDte       string          `json:"tipo_dte"`
	Version       int             `json:"version"`
	NumeroControl string          `json:"numero_control"`
	DTE           json.RawMessage `json:"dte"`
}

// InvalidationRequest solicitud de anulación de un DTE procesado.
type InvalidationRequest struct {
	CodigoGeneracion     string `json:"codigo_generacion" validate:"required,len=36"`
	Type                 int    `json:"tipo_anulacion" validate:"required,oneof=1 2 3"`
	Reason               string `json:"motivo" validate:"max=250"`
	ReplacementCode      string `json:"codigo_generacion_r" validate:"omitempty,len=36"`
	ResponsibleName      string `json:"nombre_responsable" validate:"required,max=100"`
	ResponsibleDocType   string `json:"tip_doc_responsable" validate:"required,oneof=36 13 02 03 37"`
	ResponsibleDocNumber string `json:"num_doc_responsable" validate:"required,max=20"`
	RequesterName        string `json:"nombre_solicita" validate:"max=100"`
	RequesterDocType     string `json:"tip_doc_solicita" validate:"omitempty,oneof=36 13 02 03 37"`
	RequesterDocNumber   string `json:"num_doc_solicita" validate:"max=20"`
}

// InvalidationResponse resultado del evento de invalidación.
type InvalidationResponse struct {
	ID               string `json:"id"`
	DocumentID       string `json:"document_id"`
	CodigoGeneracion string `json:"codigo_generacion"`
	Status           string `json:"status"`
	SelloRecibido    string `json:"sello_recibido,omitempty"`
	Observaciones    string `json:"observaciones,omitempty"`
}

// NewInvalidationResponse arma la respuesta a partir de la entidad.
func NewInvalidationResponse(inv *entity.Invalidation) InvalidationResponse {
	return InvalidationResponse{
		ID:               inv.ID,
		DocumentID:       inv.DocumentID,
		CodigoGeneracion: inv.GenerationCode,
		Status:           inv.Status,
		SelloRecibido:    inv.ReceptionSeal,
		Observaciones:    inv.MHMessages,
	}
}
