package dte

import (
	"strings"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
	"github.com/shopspring/decimal"
)

const (
	defaultActivityDesc = "ACTIVIDAD GENERAL"
	defaultComplement   = "CIUDAD"
	countryElSalvador   = "9300" // CAT-020
)

// Direccion dirección nacional (departamento y municipio según CAT-012 / CAT-013).
type Direccion struct {
	Departamento string `json:"departamento"`
	Municipio    string `json:"municipio"`
	Complemento  string `json:"complemento"`
}

// Emisor bloque del contribuyente que emite el DTE.
type Emisor struct {
	NIT                 string    `json:"nit"`
	NRC                 string    `json:"nrc"`
	Nombre              string    `json:"nombre"`
	CodActividad        string    `json:"codActividad"`
	DescActividad       string    `json:"descActividad"`
	NombreComercial     *string   `json:"nombreComercial"`
	TipoEstablecimiento string    `json:"tipoEstablecimiento"`
	Direccion           Direccion `json:"direccion"`
	Telefono            string    `json:"telefono"`
	Correo              string    `json:"correo"`
	CodEstableMH        *string   `json:"codEstableMH"`
	CodEstable          *string   `json:"codEstable"`
	CodPuntoVentaMH     *string   `json:"codPuntoVentaMH"`
	CodPuntoVenta       *string   `json:"codPuntoVenta"`

	// Exportación
	TipoItemExpor *int    `json:"tipoItemExpor,omitempty"`
	RecintoFiscal *string `json:"recintoFiscal,omitempty"`
	Regimen       *string `json:"regimen,omitempty"`
}

// ReceptorFactura receptor de Factura y notas: consumidor final o contribuyente.
type ReceptorFactura struct {
	TipoDocumento *string    `json:"tipoDocumento"`
	NumDocumento  *string    `json:"numDocumento"`
	NRC           *string    `json:"nrc"`
	Nombre        *string    `json:"nombre"`
	CodActividad  *string    `json:"codActividad"`
	DescActividad *string    `json:"descActividad"`
	Direccion     *Direccion `json:"direccion"`
	Telefono      *string    `json:"telefono"`
	Correo        *string    `json:"correo"`
}

// ReceptorCCF receptor del comprobante de crédito fiscal; se identifica por NIT.
type ReceptorCCF struct {
	NIT             string    `json:"nit"`
	NRC             string    `json:"nrc"`
	Nombre          string    `json:"nombre"`
	CodActividad    *string   `json:"codActividad"`
	DescActividad   *string   `json:"descActividad"`
	NombreComercial *string   `json:"nombreComercial"`
	Direccion       Direccion `json:"direccion"`
	Telefono        *string   `json:"telefono"`
	Correo          *string   `json:"correo"`
}

// ReceptorRemision receptor de la nota de remisión.
type ReceptorRemision struct {
	TipoDocumento   string    `json:"tipoDocumento"`
	NumDocumento    string    `json:"numDocumento"`
	NRC             *string   `json:"nrc"`
	Nombre          string    `json:"nombre"`
	CodActividad    *string   `json:"codActividad"`
	DescActividad   *string   `json:"descActividad"`
	NombreComercial *string   `json:"nombreComercial"`
	Direccion       Direccion `json:"direccion"`
	Telefono        *string   `json:"telefono"`
	Correo          *string   `json:"correo"`
	BienTitulo      string    `json:"bienTitulo"`
}

// ReceptorExportacion receptor internacional de la factura de exportación.
type ReceptorExportacion struct {
	Nombre          string  `json:"nombre"`
	TipoDocumento   string  `json:"tipoDocumento"`
	NumDocumento    *string `json:"numDocumento"`
	NombreComercial *string `json:"nombreComercial"`
	CodPais         string  `json:"codPais"`
	NombrePais      string  `json:"nombrePais"`
	Complemento     string  `json:"complemento"`
	TipoPersona     int     `json:"tipoPersona"`
	DescActividad   *string `json:"descActividad"`
	Telefono        *string `json:"telefono"`
	Correo          *string `json:"correo"`
}

// SujetoExcluido vendedor no inscrito en la factura de sujeto excluido.
type SujetoExcluido struct {
	TipoDocumento string    `json:"tipoDocumento"`
	NumDocumento  string    `json:"numDocumento"`
	Nombre        string    `json:"nombre"`
	CodActividad  *string   `json:"codActividad"`
	DescActividad *string   `json:"descActividad"`
	Direccion     Direccion `json:"direccion"`
	Telefono      *string   `json:"telefono"`
	Correo        *string   `json:"correo"`
}

// buildEmisor arma el bloque emisor desde la empresa y el establecimiento.
func buildEmisor(rec *entity.InvoiceRecord, rules *RuleSet, cfg Config) (Emisor, error) {
	c, est := cfg.Company, cfg.Establishment
	if c == nil {
		return Emisor{}, configErr(ErrIncompleteIssuerConfig, "empresa emisora no configurada")
	}
	if !mh.HasValidNIT(c.NIT) {
		return Emisor{}, configErr(ErrIncompleteIssuerConfig, "NIT del emisor %q", c.NIT)
	}
	if strings.TrimSpace(c.Name) == "" {
		return Emisor{}, configErr(ErrIncompleteIssuerConfig, "nombre del emisor vacío")
	}
	if est == nil {
		return Emisor{}, configErr(ErrIncompleteIssuerConfig, "establecimiento no configurado")
	}
	code, pos := est.ControlCode()
	if code == "" || pos == "" {
		return Emisor{}, configErr(ErrIncompleteIssuerConfig, "establecimiento %s sin código o punto de venta", est.ID)
	}

	dept, muni := splitDistrict(est.DistrictCode)
	e := Emisor{
		NIT:                 mh.NormalizeNIT(c.NIT),
		NRC:                 mh.Digits(c.NRC),
		Nombre:              CleanText(c.Name, maxName),
		CodActividad:        orDefault(strings.TrimSpace(c.ActivityCode), mh.DefaultActivityCode),
		DescActividad:       orDefault(CleanText(c.ActivityDesc, maxActivity), defaultActivityDesc),
		NombreComercial:     cleanOrNil(c.CommercialName, maxCommercial),
		TipoEstablecimiento: orDefault(est.Type, mh.EstablishmentBranch),
		Direccion: Direccion{
			Departamento: dept,
			Municipio:    muni,
			Complemento:  orDefault(CleanText(est.Address, maxComplement), defaultComplement),
		},
		Telefono:        orDefault(strings.TrimSpace(est.Phone), strings.TrimSpace(c.Phone)),
		Correo:          orDefault(strings.TrimSpace(est.Email), strings.TrimSpace(c.Email)),
		CodEstableMH:    paddedOrNil(est.CodeMH),
		CodEstable:      paddedOrNil(est.Code),
		CodPuntoVentaMH: paddedOrNil(est.POSCodeMH),
		CodPuntoVenta:   paddedOrNil(est.POSCode),
	}
	if rules.Shape == ShapeExport {
		itemType := mh.ItemGood
		if rec.Export != nil && rec.Export.ItemType > 0 {
			itemType = rec.Export.ItemType
		}
		e.TipoItemExpor = &itemType
	}
	return e, nil
}

func isFinalConsumer(rec *entity.InvoiceRecord) bool {
	return rec.Classification == entity.FiscalFinalConsumer
}

// receptorBuilders despacho por forma del documento.
var receptorBuilders = map[Shape]func(rec *entity.InvoiceRecord, rules *RuleSet, total decimal.Decimal) (any, error){
	ShapeInvoice:  buildReceptorFactura,
	ShapeNote:     buildReceptorFactura,
	ShapeCCF:      buildReceptorCCF,
	ShapeShipping: buildReceptorRemision,
	ShapeExport:   buildReceptorExportacion,
	ShapeExcluded: buildSujetoExcluido,
}

// buildReceptor devuelve el receptor según tipo y clasificación; nil se serializa como null.
// total es el monto de la operación (umbral del receptor de exportación).
func buildReceptor(rec *entity.InvoiceRecord, rules *RuleSet, total decimal.Decimal) (any, error) {
	if rules.Receptor == ReceptorNone {
		return nil, nil
	}
	return receptorBuilders[rules.Shape](rec, rules, total)
}

func buildReceptorFactura(rec *entity.InvoiceRecord, _ *RuleSet, _ decimal.Decimal) (any, error) {
	b := rec.Buyer
	if isFinalConsumer(rec) {
		return &ReceptorFactura{
			Nombre: cleanOrNil(b.Name, maxName),
			Correo: trimOrNil(b.Email, maxEmail),
		}, nil
	}
	docType, number, err := buyerDocument(b, mh.IDNIT)
	if err != nil {
		return nil, err
	}
	dir := buyerAddress(b)
	return &ReceptorFactura{
		TipoDocumento: &docType,
		NumDocumento:  &number,
		NRC:           digitsOrNil(b.NRC),
		Nombre:        cleanOrNil(b.Name, maxName),
		CodActividad:  trimOrNil(b.ActivityCode, 6),
		DescActividad: activityDesc(b),
		Direccion:     &dir,
		Telefono:      trimOrNil(b.Phone, maxPhone),
		Correo:        trimOrNil(b.Email, maxEmail),
	}, nil
}

func buildReceptorCCF(rec *entity.InvoiceRecord, _ *RuleSet, _ decimal.Decimal) (any, error) {
	b := rec.Buyer
	if rec.Classification == entity.FiscalFinalConsumer {
		return nil, classErr(ErrFinalConsumerNotAllowed, "CCF requiere un receptor contribuyente")
	}
	if !mh.HasValidNIT(b.DocumentNumber) {
		return nil, classErr(ErrFinalConsumerNotAllowed, "receptor sin NIT válido (%q)", b.DocumentNumber)
	}
	nrc := mh.Digits(b.NRC)
	if nrc == "" {
		return nil, classErr(ErrFinalConsumerNotAllowed, "receptor sin NRC")
	}
	return &ReceptorCCF{
		NIT:             mh.NormalizeNIT(b.DocumentNumber),
		NRC:             nrc,
		Nombre:          CleanText(b.Name, maxName),
		CodActividad:    trimOrNil(b.ActivityCode, 6),
		DescActividad:   activityDesc(b),
		NombreComercial: cleanOrNil(orDefault(strings.TrimSpace(b.CommercialName), b.Name), maxCommercial),
		Direccion:       buyerAddress(b),
		Telefono:        trimOrNil(b.Phone, maxPhone),
		Correo:          trimOrNil(b.Email, maxEmail),
	}, nil
}

func buildReceptorRemision(rec *entity.InvoiceRecord, _ *RuleSet, _ decimal.Decimal) (any, error) {
	b := rec.Buyer
	docType, number, err := buyerDocument(b, mh.IDNIT)
	if err != nil {
		return nil, err
	}
	return &ReceptorRemision{
		TipoDocumento:   docType,
		NumDocumento:    number,
		NRC:             digitsOrNil(b.NRC),
		Nombre:          CleanText(b.Name, maxName),
		CodActividad:    trimOrNil(b.ActivityCode, 6),
		DescActividad:   activityDesc(b),
		NombreComercial: cleanOrNil(b.CommercialName, maxCommercial),
		Direccion:       buyerAddress(b),
		Telefono:        trimOrNil(b.Phone, maxPhone),
		Correo:          trimOrNil(b.Email, maxEmail),
		BienTitulo:      mh.TitleDeposit,
	}, nil
}

func buildReceptorExportacion(rec *entity.InvoiceRecord, rules *RuleSet, total decimal.Decimal) (any, error) {
	if total.LessThan(rules.ReceptorThreshold) {
		return nil, nil
	}
	b := rec.Buyer
	country := strings.ToUpper(strings.TrimSpace(b.CountryCode))
	if country == "" || country == countryElSalvador || country == "SV" {
		return nil, classErr(ErrDomesticBuyer, "país del receptor %q", b.CountryCode)
	}
	personType := b.PersonType
	if personType == 0 {
		personType = 2
	}
	return &ReceptorExportacion{
		Nombre:          CleanText(b.Name, maxName),
		TipoDocumento:   orDefault(b.DocumentType, mh.IDOther),
		NumDocumento:    trimOrNil(b.DocumentNumber, 20),
		NombreComercial: cleanOrNil(b.CommercialName, maxCommercial),
		CodPais:         country,
		NombrePais:      CleanText(b.CountryName, 50),
		Complemento:     orDefault(CleanText(b.Address, 300), defaultComplement),
		TipoPersona:     personType,
		DescActividad:   activityDesc(b),
		Telefono:        trimOrNil(b.Phone, maxPhone),
		Correo:          trimOrNil(b.Email, maxEmail),
	}, nil
}

func buildSujetoExcluido(rec *entity.InvoiceRecord, _ *RuleSet, _ decimal.Decimal) (any, error) {
	b := rec.Buyer
	docType, number, err := buyerDocument(b, mh.IDDUI)
	if err != nil {
		return nil, err
	}
	return &SujetoExcluido{
		TipoDocumento: docType,
		NumDocumento:  number,
		Nombre:        CleanText(b.Name, maxName),
		CodActividad:  trimOrNil(b.ActivityCode, 6),
		DescActividad: activityDesc(b),
		Direccion:     buyerAddress(b),
		Telefono:      trimOrNil(b.Phone, maxPhone),
		Correo:        trimOrNil(b.Email, maxEmail),
	}, nil
}

// buyerDocument tipo y número normalizado del documento del comprador.
func buyerDocument(b entity.Party, defaultType string) (string, string, error) {
	docType := orDefault(strings.TrimSpace(b.DocumentType), defaultType)
	number := mh.NormalizeDocument(docType, b.DocumentNumber)
	if number == "" {
		return "", "", classErr(ErrMissingBuyerID, "receptor %q", b.Name)
	}
	return docType, number, nil
}

func buyerAddress(b entity.Party) Direccion {
	dept, muni := splitDistrict(b.DistrictCode)
	return Direccion{
		Departamento: dept,
		Municipio:    muni,
		Complemento:  orDefault(CleanText(b.Address, maxComplement), defaultComplement),
	}
}

func activityDesc(b entity.Party) *string {
	d := orDefault(CleanText(b.ActivityDesc, maxActivity), defaultActivityDesc)
	return &d
}

// splitDistrict separa "0614" en departamento "06" y municipio "14".
func splitDistrict(code string) (string, string) {
	d := mh.Digits(code)
	if len(d) < 4 {
		return mh.DefaultDepartment, mh.DefaultMunicipality
	}
	return d[:2], d[2:4]
}

func paddedOrNil(code string) *string {
	p, err := padCode(code)
	if err != nil {
		return nil
	}
	return &p
}

func digitsOrNil(s string) *string {
	d := mh.Digits(s)
	if d == "" {
		return nil
	}
	return &d
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
