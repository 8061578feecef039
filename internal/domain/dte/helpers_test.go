package dte_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

var (
	fixedNow = time.Date(2026, 3, 15, 14, 30, 5, 0, time.UTC)
	svZone   = time.FixedZone("CST", -6*60*60)
)

const (
	testEstablishmentID = "est-1"
	foreignCountry      = "9450"
	relatedControl      = "DTE-03-M001P001-000000000000010"
)

func testCompany() *entity.Company {
	return &entity.Company{
		ID:             "comp-1",
		Name:           "Comercial El Roble S.A. de C.V.",
		CommercialName: "El Roble",
		NIT:            "0614-010190-101-3",
		NRC:            "12345-6",
		ActivityCode:   "46900",
		ActivityDesc:   "Venta al por mayor de otros productos",
		Phone:          "2222-3333",
		Email:          "facturas@elroble.sv",
	}
}

func testEstablishment() *entity.Establishment {
	return &entity.Establishment{
		ID:           testEstablishmentID,
		CompanyID:    "comp-1",
		Name:         "Casa matriz",
		Type:         mh.EstablishmentMain,
		Code:         "1",
		POSCode:      "1",
		CodeMH:       "M001",
		POSCodeMH:    "P001",
		DistrictCode: "0614",
		Address:      "Col. Escalón, calle 3 #45",
		IsActive:     true,
	}
}

func testConfig(store dte.NumberingStore) dte.Config {
	return dte.Config{
		Environment:   mh.EnvironmentTest,
		Company:       testCompany(),
		Establishment: testEstablishment(),
		Sequences:     store,
		Location:      svZone,
		Now:           func() time.Time { return fixedNow },
	}
}

func taxpayerBuyer() entity.Party {
	return entity.Party{
		Name:           "Distribuidora Los Andes S.A.",
		CommercialName: "Los Andes",
		DocumentType:   mh.IDNIT,
		DocumentNumber: "0614-250585-102-1",
		NRC:            "98765-4",
		ActivityCode:   "46900",
		ActivityDesc:   "Distribución de alimentos",
		DistrictCode:   "0210",
		Address:        "Av. Independencia 12",
		Phone:          "2440-1122",
		Email:          "compras@losandes.sv",
	}
}

func line(price, qty string, codes ...string) entity.LineItem {
	return entity.LineItem{
		Description: "Producto de prueba",
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		TaxCodes:    codes,
	}
}

func record(docType string, class entity.FiscalClassification, lines ...entity.LineItem) *entity.InvoiceRecord {
	return &entity.InvoiceRecord{
		ID:              "inv-" + docType,
		CompanyID:       "comp-1",
		EstablishmentID: testEstablishmentID,
		DocumentType:    docType,
		Currency:        "USD",
		Date:            time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		State:           entity.InvoiceStateFinalized,
		Classification:  class,
		Buyer:           taxpayerBuyer(),
		Lines:           lines,
		Settlement:      entity.SettlementCash,
	}
}

func compile(t *testing.T, rec *entity.InvoiceRecord, store dte.NumberingStore) *dte.CompiledDocument {
	t.Helper()
	doc, err := dte.CompileRecord(context.Background(), rec, testConfig(store))
	require.NoError(t, err, "la compilación no debe fallar")
	return doc
}

// ──────────────────────────────────────────────────────────────────────────────
// Navegación del JSON
// ──────────────────────────────────────────────────────────────────────────────

func obj(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := m[key].(map[string]any)
	require.Truef(t, ok, "%s debe ser un objeto, es %T", key, m[key])
	return v
}

func arr(t *testing.T, m map[string]any, key string) []any {
	t.Helper()
	v, ok := m[key].([]any)
	require.Truef(t, ok, "%s debe ser un arreglo, es %T", key, m[key])
	return v
}

func num(t *testing.T, m map[string]any, key string) string {
	t.Helper()
	v, ok := m[key].(json.Number)
	require.Truef(t, ok, "%s debe ser numérico, es %T", key, m[key])
	return v.String()
}

func dec(t *testing.T, m map[string]any, key string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(num(t, m, key))
}

// requireNullKey la clave debe existir con valor null.
func requireNullKey(t *testing.T, m map[string]any, key string) {
	t.Helper()
	v, ok := m[key]
	require.Truef(t, ok, "%s debe estar presente", key)
	require.Nilf(t, v, "%s debe ser null", key)
}

type pathHit struct {
	present bool
	value   any
}

// hits resuelve una ruta con puntos; "x[]" recorre los elementos del arreglo x.
func hits(node any, path string) []pathHit {
	segs := strings.Split(path, ".")
	var out []pathHit
	var rec func(n any, segs []string)
	rec = func(n any, segs []string) {
		m, ok := n.(map[string]any)
		if !ok {
			return
		}
		key := strings.TrimSuffix(segs[0], "[]")
		isArr := key != segs[0]
		if len(segs) == 1 {
			v, ok := m[key]
			out = append(out, pathHit{present: ok, value: v})
			return
		}
		if isArr {
			items, _ := m[key].([]any)
			for _, it := range items {
				rec(it, segs[1:])
			}
			return
		}
		rec(m[key], segs[1:])
	}
	rec(node, segs)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Almacenes de correlativos de prueba
// ──────────────────────────────────────────────────────────────────────────────

// countingStore contador simple con registro de llamadas.
type countingStore struct {
	mu    sync.Mutex
	next  int64
	calls int
}

func (s *countingStore) NextSequence(_ context.Context, _, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.next++
	return s.next, nil
}

// contendedStore falla con contención las primeras failures veces.
type contendedStore struct {
	failures int
	calls    int
	value    int64
}

func (s *contendedStore) NextSequence(_ context.Context, est, typeCode string) (int64, error) {
	s.calls++
	if s.calls <= s.failures {
		return 0, &dte.SequenceContentionError{EstablishmentID: est, TypeCode: typeCode}
	}
	return s.value, nil
}
