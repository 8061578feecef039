package mh_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestJWSSigner_FirmaYVerifica(t *testing.T) {
	key := testKey(t)
	doc := []byte(`{"identificacion":{"tipoDte":"01","version":1}}`)

	jws, err := mh.NewJWSSigner(key).Sign(context.Background(), doc)
	require.NoError(t, err)
	assert.Len(t, strings.Split(jws, "."), 3)

	payload, err := mh.VerifyJWS(jws, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, doc, payload, "el payload debe ser el JSON exacto")
}

func TestJWSSigner_RechazaJSONInvalido(t *testing.T) {
	_, err := mh.NewJWSSigner(testKey(t)).Sign(context.Background(), []byte("{no"))
	assert.Error(t, err)
}

func TestVerifyJWS_OtraLlave(t *testing.T) {
	jws, err := mh.NewJWSSigner(testKey(t)).Sign(context.Background(), []byte(`{}`))
	require.NoError(t, err)

	_, err = mh.VerifyJWS(jws, &testKey(t).PublicKey)
	assert.Error(t, err)
}

func TestLoadSigningKey_PEM(t *testing.T) {
	key := testKey(t)
	dir := t.TempDir()

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pkcs8 := filepath.Join(dir, "llave.pem")
	require.NoError(t, os.WriteFile(pkcs8, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

	pkcs1 := filepath.Join(dir, "llave-rsa.pem")
	require.NoError(t, os.WriteFile(pkcs1, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))

	for _, path := range []string{pkcs8, pkcs1} {
		got, err := mh.LoadSigningKey(path, "")
		require.NoError(t, err, path)
		assert.True(t, got.Equal(key))
	}
}

func TestLoadSigningKey_Errores(t *testing.T) {
	_, err := mh.LoadSigningKey("", "")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "vacio.pem")
	require.NoError(t, os.WriteFile(bad, []byte("sin llave"), 0o600))
	_, err = mh.LoadSigningKey(bad, "")
	assert.Error(t, err)

	p12 := filepath.Join(dir, "corrupto.p12")
	require.NoError(t, os.WriteFile(p12, []byte{0x30, 0x00}, 0o600))
	_, err = mh.LoadSigningKey(p12, "clave")
	assert.Error(t, err)
}
