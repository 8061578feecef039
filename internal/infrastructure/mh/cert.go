package mh

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// LoadSigningKey carga la llave privada RSA de firma desde un .p12/.pfx (PKCS#12)
// o desde un PEM con la llave en PKCS#8 o PKCS#1.
func LoadSigningKey(path, password string) (*rsa.PrivateKey, error) {
	if path == "" {
		return nil, errors.New("MH_CERT_PATH no configurado")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer certificado: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return keyFromP12(data, password)
	default:
		return keyFromPEM(data)
	}
}

func keyFromP12(data []byte, password string) (*rsa.PrivateKey, error) {
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("la llave del p12 no es RSA (%T)", priv)
	}
	if cert != nil {
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok && !pub.Equal(&key.PublicKey) {
			return nil, errors.New("la llave privada no corresponde al certificado")
		}
	}
	return key, nil
}

func keyFromPEM(data []byte) (*rsa.PrivateKey, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("no se encontró una llave privada en el PEM")
		}
		switch block.Type {
		case "PRIVATE KEY":
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("llave PKCS#8: %w", err)
			}
			rsaKey, ok := k.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("la llave PEM no es RSA (%T)", k)
			}
			return rsaKey, nil
		case "RSA PRIVATE KEY":
			k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("llave PKCS#1: %w", err)
			}
			return k, nil
		}
	}
}
