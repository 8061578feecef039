// Package archive guarda en S3 (o MinIO) el JWS firmado y el acuse del MH de cada DTE.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/config"
)

// objectPutter subconjunto de *s3.Client que usa el archivo.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive archivo de DTE en un bucket S3 compatible.
type S3Archive struct {
	client objectPutter
	bucket string
}

// NewS3Archive construye el cliente S3. Con AccessKey vacío se usa la cadena de credenciales por defecto de AWS.
func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive: bucket requerido")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: configuración AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Archive{client: client, bucket: cfg.Bucket}, nil
}

// Key ruta base del DTE: dte/<ambiente>/<yyyy>/<mm>/<codigoGeneracion>.
func Key(doc *entity.IssuedDocument) string {
	return fmt.Sprintf("dte/%s/%04d/%02d/%s",
		doc.Environment, doc.EmittedAt.Year(), int(doc.EmittedAt.Month()), strings.ToUpper(doc.GenerationCode))
}

// Store sube <key>.jws y, si hay acuse, <key>.json.
func (a *S3Archive) Store(ctx context.Context, doc *entity.IssuedDocument, receipt []byte) error {
	if doc.SignedJWS == "" {
		return fmt.Errorf("archive: el DTE %s no está firmado", doc.GenerationCode)
	}
	key := Key(doc)
	if err := a.put(ctx, key+".jws", "application/jose", []byte(doc.SignedJWS), doc); err != nil {
		return err
	}
	if len(receipt) == 0 {
		return nil
	}
	return a.put(ctx, key+".json", "application/json", receipt, doc)
}

func (a *S3Archive) put(ctx context.Context, key, contentType string, body []byte, doc *entity.IssuedDocument) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"numero-control": doc.ControlNumber,
			"tipo-dte":       doc.DocumentType,
		},
	})
	if err != nil {
		return fmt.Errorf("archive: subir %s: %w", key, err)
	}
	return nil
}
