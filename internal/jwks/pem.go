package jwks

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrKeyFormat is returned when a record has no usable certificate material.
var ErrKeyFormat = errors.New("jwks: key has no usable x5c certificate")

const pemCertificateType = "CERTIFICATE"

// ToPEM converts the first x5c entry of k into a PEM encoded certificate.
// pem.EncodeToMemory wraps the body at 64 columns.
func ToPEM(k Key) (VerificationKey, error) {
	if len(k.X5c) == 0 || k.X5c[0] == "" {
		return nil, fmt.Errorf("kid %q: %w", k.KID, ErrKeyFormat)
	}
	der, err := base64.StdEncoding.DecodeString(k.X5c[0])
	if err != nil {
		return nil, fmt.Errorf("kid %q: x5c[0] is not base64: %w", k.KID, ErrKeyFormat)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemCertificateType, Bytes: der}), nil
}

// PEMConverter adapts ToPEM to the converter strategy used by the key cache.
type PEMConverter struct{}

func (PEMConverter) Convert(k Key) (VerificationKey, error) { return ToPEM(k) }
