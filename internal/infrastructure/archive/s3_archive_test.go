package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	objects map[string][]byte
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func signedDoc() *entity.IssuedDocument {
	return &entity.IssuedDocument{
		Environment:    "00",
		DocumentType:   "01",
		GenerationCode: "a1b2c3d4-0000-4000-8000-000000000001",
		ControlNumber:  "DTE-01-M001P001-000000000000001",
		SignedJWS:      "h.p.s",
		EmittedAt:      time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC),
	}
}

func TestKey_RutaPorAmbienteYMes(t *testing.T) {
	assert.Equal(t, "dte/00/2026/03/A1B2C3D4-0000-4000-8000-000000000001", Key(signedDoc()))
}

func TestStore_SubeJWSYAcuse(t *testing.T) {
	f := &fakePutter{objects: map[string][]byte{}}
	a := &S3Archive{client: f, bucket: "dte"}

	require.NoError(t, a.Store(context.Background(), signedDoc(), []byte(`{"estado":"PROCESADO"}`)))
	assert.Equal(t, []byte("h.p.s"), f.objects["dte/00/2026/03/A1B2C3D4-0000-4000-8000-000000000001.jws"])
	assert.Contains(t, f.objects, "dte/00/2026/03/A1B2C3D4-0000-4000-8000-000000000001.json")
}

func TestStore_SinAcuseSoloJWS(t *testing.T) {
	f := &fakePutter{objects: map[string][]byte{}}
	a := &S3Archive{client: f, bucket: "dte"}

	require.NoError(t, a.Store(context.Background(), signedDoc(), nil))
	assert.Len(t, f.objects, 1)
}

func TestStore_Errores(t *testing.T) {
	a := &S3Archive{client: &fakePutter{err: errors.New("sin red")}, bucket: "dte"}
	assert.Error(t, a.Store(context.Background(), signedDoc(), nil))

	doc := signedDoc()
	doc.SignedJWS = ""
	assert.Error(t, (&S3Archive{client: &fakePutter{objects: map[string][]byte{}}}).Store(context.Background(), doc, nil))
}
