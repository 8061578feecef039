package dto

import "github.com/jhoicas/dte-sv/internal/domain/entity"

// CompanyRequest datos fiscales del emisor.
type CompanyRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name" validate:"required,max=250"`
	CommercialName string `json:"commercial_name" validate:"max=150"`
	NIT            string `json:"nit" validate:"required,max=17"`
	NRC            string `json:"nrc" validate:"required,max=8"`
	ActivityCode   string `json:"activity_code" validate:"required,max=6"`
	ActivityDesc   string `json:"activity_desc" validate:"required,max=150"`
	Phone          string `json:"phone" validate:"max=30"`
	Email          string `json:"email" validate:"omitempty,email"`
}

// EstablishmentRequest establecimiento y punto de venta registrados ante el MH.
type EstablishmentRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type" validate:"omitempty,oneof=01 02 04 07 20"`
	Code         string `json:"code" validate:"max=4"`
	POSCode      string `json:"pos_code" validate:"max=4"`
	CodeMH       string `json:"code_mh" validate:"max=4"`
	POSCodeMH    string `json:"pos_code_mh" validate:"max=4"`
	DistrictCode string `json:"district_code" validate:"omitempty,len=4"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email" validate:"omitempty,email"`
}

// IssuerFile configuración del emisor para la compilación fuera de línea (dtectl).
type IssuerFile struct {
	Company       CompanyRequest       `json:"company" validate:"required"`
	Establishment EstablishmentRequest `json:"establishment" validate:"required"`
	// LastSequence último correlativo emitido por el establecimiento para el tipo compilado.
	LastSequence int64 `json:"last_sequence" validate:"min=0"`
}

// ToEntities devuelve la empresa y el establecimiento con IDs por defecto.
func (f *IssuerFile) ToEntities() (*entity.Company, *entity.Establishment) {
	companyID := f.Company.ID
	if companyID == "" {
		companyID = "issuer"
	}
	estID := f.Establishment.ID
	if estID == "" {
		estID = "issuer-est"
	}
	company := &entity.Company{
		ID:             companyID,
		Name:           f.Company.Name,
		CommercialName: f.Company.CommercialName,
		NIT:            f.Company.NIT,
		NRC:            f.Company.NRC,
		ActivityCode:   f.Company.ActivityCode,
		ActivityDesc:   f.Company.ActivityDesc,
		Phone:          f.Company.Phone,
		Email:          f.Company.Email,
		Status:         entity.CompanyStatusActive,
	}
	est := &entity.Establishment{
		ID:           estID,
		CompanyID:    companyID,
		Name:         f.Establishment.Name,
		Type:         f.Establishment.Type,
		Code:         f.Establishment.Code,
		POSCode:      f.Establishment.POSCode,
		CodeMH:       f.Establishment.CodeMH,
		POSCodeMH:    f.Establishment.POSCodeMH,
		DistrictCode: f.Establishment.DistrictCode,
		Address:      f.Establishment.Address,
		Phone:        f.Establishment.Phone,
		Email:        f.Establishment.Email,
		IsActive:     true,
	}
	return company, est
}

// ToEntity construye el establecimiento (la empresa la asigna el caso de uso).
func (r *EstablishmentRequest) ToEntity() *entity.Establishment {
	return &entity.Establishment{
		ID:           r.ID,
		Name:         r.Name,
		Type:         r.Type,
		Code:         r.Code,
		POSCode:      r.POSCode,
		CodeMH:       r.CodeMH,
		POSCodeMH:    r.POSCodeMH,
		DistrictCode: r.DistrictCode,
		Address:      r.Address,
		Phone:        r.Phone,
		Email:        r.Email,
	}
}

// EstablishmentResponse establecimiento registrado.
type EstablishmentResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	CodEstableMH string `json:"cod_estable_mh"`
	CodPuntoVta  string `json:"cod_punto_venta_mh"`
	DistrictCode string `json:"district_code,omitempty"`
	Address      string `json:"address,omitempty"`
	IsActive     bool   `json:"is_active"`
}

// IssuerResponse empresa emisora y sus establecimientos.
type IssuerResponse struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	CommercialName string                  `json:"commercial_name,omitempty"`
	NIT            string                  `json:"nit"`
	NRC            string                  `json:"nrc"`
	ActivityCode   string                  `json:"activity_code"`
	Status         string                  `json:"status"`
	Establishments []EstablishmentResponse `json:"establishments"`
}

// NewEstablishmentResponse arma la respuesta de un establecimiento.
func NewEstablishmentResponse(e *entity.Establishment) EstablishmentResponse {
	code, pos := e.ControlCode()
	return EstablishmentResponse{
		ID:           e.ID,
		Name:         e.Name,
		Type:         e.Type,
		CodEstableMH: code,
		CodPuntoVta:  pos,
		DistrictCode: e.DistrictCode,
		Address:      e.Address,
		IsActive:     e.IsActive,
	}
}

// NewIssuerResponse arma la respuesta del emisor.
func NewIssuerResponse(c *entity.Company, ests []*entity.Establishment) IssuerResponse {
	out := IssuerResponse{
		ID:             c.ID,
		Name:           c.Name,
		CommercialName: c.CommercialName,
		NIT:            c.NIT,
		NRC:            c.NRC,
		ActivityCode:   c.ActivityCode,
		Status:         c.Status,
		Establishments: make([]EstablishmentResponse, 0, len(ests)),
	}
	for _, e := range ests {
		out.Establishments = append(out.Establishments, NewEstablishmentResponse(e))
	}
	return out
}
