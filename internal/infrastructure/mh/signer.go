package mh

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	pkgmh "github.com/jhoicas/dte-sv/pkg/mh"
)

var _ pkgmh.Signer = (*JWSSigner)(nil)

// JWSSigner firma el DTE como JWS compacto RS512: el payload son los bytes exactos del JSON compilado.
type JWSSigner struct {
	key *rsa.PrivateKey
}

// NewJWSSigner construye el firmador con la llave ya cargada (ver LoadSigningKey).
func NewJWSSigner(key *rsa.PrivateKey) *JWSSigner {
	return &JWSSigner{key: key}
}

var jwsHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS512"}`))

func (s *JWSSigner) Sign(_ context.Context, document []byte) (string, error) {
	if s.key == nil {
		return "", errors.New("firmador sin llave privada")
	}
	if !json.Valid(document) {
		return "", errors.New("el documento a firmar no es JSON válido")
	}
	signingString := jwsHeader + "." + base64.RawURLEncoding.EncodeToString(document)
	sig, err := jwt.SigningMethodRS512.Sign(signingString, s.key)
	if err != nil {
		return "", fmt.Errorf("firmar JWS: %w", err)
	}
	return signingString + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// VerifyJWS valida la firma y devuelve el payload (el JSON del DTE).
func VerifyJWS(jws string, pub *rsa.PublicKey) ([]byte, error) {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 {
		return nil, errors.New("JWS mal formado")
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("firma JWS: %w", err)
	}
	if err := jwt.SigningMethodRS512.Verify(parts[0]+"."+parts[1], sig, pub); err != nil {
		return nil, fmt.Errorf("verificar JWS: %w", err)
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}
