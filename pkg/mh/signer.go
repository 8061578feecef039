package mh

import "context"

// Signer firma el JSON de un DTE y devuelve la firma compacta JWS que se transmite al MH.
type Signer interface {
	Sign(ctx context.Context, document []byte) (string, error)
}
