package dte_test

import (
	"testing"

	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFingerprint_SoloCamposTributarios(t *testing.T) {
	base := record(mh.DTECCF, entity.FiscalTaxpayer, line("100", "2", mh.TaxVAT))
	fp := dte.Fingerprint(base)
	assert.Len(t, fp, 64)

	same := record(mh.DTECCF, entity.FiscalTaxpayer, line("100", "2", mh.TaxVAT))
	same.State = entity.InvoiceStateDraft
	same.Identifiers = &entity.IssuedIdentifiers{GenerationCode: "X"}
	assert.Equal(t, fp, dte.Fingerprint(same), "estado e identificadores no alteran la huella")

	changed := record(mh.DTECCF, entity.FiscalTaxpayer, line("100", "2", mh.TaxVAT))
	changed.Lines[0].UnitPrice = decimal.RequireFromString("101")
	assert.NotEqual(t, fp, dte.Fingerprint(changed))

	buyer := record(mh.DTECCF, entity.FiscalTaxpayer, line("100", "2", mh.TaxVAT))
	buyer.Buyer.NRC = "1"
	assert.NotEqual(t, fp, dte.Fingerprint(buyer))
}
