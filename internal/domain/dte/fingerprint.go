package dte

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// fingerprintInput campos con efecto tributario; estado e identificadores no cuentan.
type fingerprintInput struct {
	DocumentType    string
	EstablishmentID string
	Currency        string
	Date            string
	Classification  entity.FiscalClassification
	Buyer           entity.Party
	Lines           []entity.LineItem
	PaymentTerm     entity.PaymentTerm
	Settlement      string
	Related         *entity.RelatedDocumentRef
	Export          *entity.ExportDetails
	Delivery        *entity.DeliveryDetails
	Observations    string
}

// Fingerprint hash SHA-256 de los campos tributarios de la factura. Si cambia,
// el DTE compilado previamente deja de ser válido.
func Fingerprint(rec *entity.InvoiceRecord) string {
	in := fingerprintInput{
		DocumentType:    rec.DocumentType,
		EstablishmentID: rec.EstablishmentID,
		Currency:        currency(rec.Currency),
		Date:            rec.Date.Format(time.DateOnly),
		Classification:  rec.Classification,
		Buyer:           rec.Buyer,
		Lines:           rec.Lines,
		PaymentTerm:     rec.PaymentTerm,
		Settlement:      rec.Settlement,
		Related:         rec.Related,
		Export:          rec.Export,
		Delivery:        rec.Delivery,
		Observations:    rec.Observations,
	}
	raw, _ := json.Marshal(in)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
