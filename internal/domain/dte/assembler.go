package dte

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Document estructura tipada previa al ensamblado. Receptor y Resumen llevan la
// variante que corresponde a la forma del tipo.
type Document struct {
	Identificacion       Identificacion         `json:"identificacion"`
	DocumentoRelacionado []DocumentoRelacionado `json:"documentoRelacionado"`
	Emisor               Emisor                 `json:"emisor"`
	Receptor             any                    `json:"receptor"`
	SujetoExcluido       any                    `json:"sujetoExcluido,omitempty"`
	OtrosDocumentos      []any                  `json:"otrosDocumentos"`
	VentaTercero         any                    `json:"ventaTercero"`
	CuerpoDocumento      []Item                 `json:"cuerpoDocumento"`
	Resumen              any                    `json:"resumen"`
	Extension            *Extension             `json:"extension"`
	Apendice             []any                  `json:"apendice"`
}

// Assemble aplica la política null/omitido del tipo y valida el resultado.
// Devuelve el JSON canónico (claves ordenadas) o un *ValidationError, nunca un resultado parcial.
func Assemble(doc *Document, rules *RuleSet, extraNull ...string) ([]byte, map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("dte: serializar documento: %w", err)
	}
	tree, err := decodeTree(raw)
	if err != nil {
		return nil, nil, err
	}

	requiredNull := append(append([]string{}, rules.RequiredNull...), extraNull...)
	for _, path := range requiredNull {
		setNull(tree, path)
	}
	for _, path := range rules.Forbidden {
		deletePath(tree, path)
	}

	if err := Validate(tree, rules, extraNull...); err != nil {
		return nil, nil, err
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, nil, fmt.Errorf("dte: serializar documento: %w", err)
	}
	return out, tree, nil
}

// Validate revisa bloques obligatorios, reglas null/prohibido, identificación y conciliación de totales.
func Validate(tree map[string]any, rules *RuleSet, extraNull ...string) error {
	var violations []error
	fail := func(format string, args ...any) {
		violations = append(violations, fmt.Errorf(format, args...))
	}

	ident, _ := tree["identificacion"].(map[string]any)
	if ident == nil {
		fail("falta identificacion")
	}
	if _, ok := tree["emisor"].(map[string]any); !ok {
		fail("falta emisor")
	}
	receptor, hasReceptor := tree[rules.ReceptorKey]
	switch {
	case !hasReceptor:
		fail("falta %s", rules.ReceptorKey)
	case receptor == nil && rules.Receptor == ReceptorAlways:
		fail("%s no puede ser null", rules.ReceptorKey)
	}
	body, _ := tree["cuerpoDocumento"].([]any)
	if len(body) == 0 {
		fail("cuerpoDocumento vacío")
	}
	resumen, _ := tree["resumen"].(map[string]any)
	if resumen == nil {
		fail("falta resumen")
	}

	for _, path := range append(append([]string{}, rules.RequiredNull...), extraNull...) {
		for _, v := range lookup(tree, path) {
			if !v.present {
				fail("%s debe existir con valor null", path)
			} else if v.value != nil {
				fail("%s debe ser null", path)
			}
		}
	}
	for _, path := range rules.Forbidden {
		for _, v := range lookup(tree, path) {
			if v.present {
				fail("%s no está permitido en DTE %s", path, rules.Code)
			}
		}
	}

	if ident != nil {
		if v := numberField(ident, "version"); !v.Equal(decimal.NewFromInt(int64(rules.Version))) {
			fail("identificacion.version %s, se esperaba %d", v, rules.Version)
		}
		if s, _ := ident["tipoDte"].(string); s != rules.Code {
			fail("identificacion.tipoDte %q, se esperaba %q", s, rules.Code)
		}
		if s, _ := ident["numeroControl"].(string); !ValidControlNumber(s) || !strings.HasPrefix(s, "DTE-"+rules.Code+"-") {
			fail("identificacion.numeroControl %q inválido", s)
		}
		if s, _ := ident["codigoGeneracion"].(string); !ValidGenerationCode(s) {
			fail("identificacion.codigoGeneracion %q inválido", s)
		}
	}

	if resumen != nil && len(body) > 0 {
		for _, msg := range reconcile(body, resumen, rules) {
			fail("%s", msg)
		}
	}

	if len(violations) > 0 {
		return &ValidationError{TypeCode: rules.Code, Violations: violations}
	}
	return nil
}

// reconcile compara la suma de las líneas con el resumen a 2 decimales.
func reconcile(body []any, resumen map[string]any, rules *RuleSet) []string {
	pairs := [][2]string{
		{"ventaNoSuj", "totalNoSuj"},
		{"ventaExenta", "totalExenta"},
		{"ventaGravada", "totalGravada"},
		{"ivaItem", "totalIva"},
		{"compra", "totalCompra"},
	}
	var out []string
	for _, p := range pairs {
		if _, ok := resumen[p[1]]; !ok {
			continue
		}
		sum, found := decimal.Zero, false
		for _, it := range body {
			m, _ := it.(map[string]any)
			if _, ok := m[p[0]]; ok {
				found = true
				sum = sum.Add(numberField(m, p[0]))
			}
		}
		if !found {
			continue
		}
		if got := numberField(resumen, p[1]); !got.Equal(round2(sum)) {
			out = append(out, fmt.Sprintf("resumen.%s %s no concilia con la suma de %s %s (DTE %s)",
				p[1], got.StringFixed(2), p[0], round2(sum).StringFixed(2), rules.Code))
		}
	}
	return out
}

// ── árbol JSON ───────────────────────────────────────────────────────────────

func decodeTree(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("dte: decodificar documento: %w", err)
	}
	return tree, nil
}

func numberField(m map[string]any, key string) decimal.Decimal {
	n, ok := m[key].(json.Number)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

type pathValue struct {
	present bool
	value   any
}

// walk recorre la ruta y llama fn con el objeto padre y la clave final.
// Si un tramo intermedio no existe o es null, la ruta no aplica.
func walk(node any, segs []string, fn func(parent map[string]any, key string)) {
	m, ok := node.(map[string]any)
	if !ok || len(segs) == 0 {
		return
	}
	seg := segs[0]
	key := strings.TrimSuffix(seg, "[]")
	if len(segs) == 1 && key == seg {
		fn(m, key)
		return
	}
	child := m[key]
	if key != seg {
		items, _ := child.([]any)
		for _, it := range items {
			walk(it, segs[1:], fn)
		}
		return
	}
	walk(child, segs[1:], fn)
}

func setNull(tree map[string]any, path string) {
	walk(tree, strings.Split(path, "."), func(parent map[string]any, key string) {
		parent[key] = nil
	})
}

func deletePath(tree map[string]any, path string) {
	walk(tree, strings.Split(path, "."), func(parent map[string]any, key string) {
		delete(parent, key)
	})
}

func lookup(tree map[string]any, path string) []pathValue {
	var out []pathValue
	walk(tree, strings.Split(path, "."), func(parent map[string]any, key string) {
		v, ok := parent[key]
		out = append(out, pathValue{present: ok, value: v})
	})
	return out
}
