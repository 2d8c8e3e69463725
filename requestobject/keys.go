package requestobject

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"

	"github.com/pkg/errors"
)

// ParsePublicKeyPEM loads the public key a client registered for its Request Objects.
// PKIX public keys, PKCS#1 RSA public keys and X.509 certificates are accepted.
func ParsePublicKeyPEM(pemData string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("[ParsePublicKeyPEM] failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "[ParsePublicKeyPEM] failed to parse RSA public key")
		}
		return pub, nil
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "[ParsePublicKeyPEM] failed to parse certificate")
		}
		return cert.PublicKey, nil
	default:
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "[ParsePublicKeyPEM] failed to parse public key")
		}
		return pub, nil
	}
}

// EncodePublicKeyPEM exports pub as a PKIX "PUBLIC KEY" block, the form clients register.
func EncodePublicKeyPEM(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", errors.Wrap(err, "[EncodePublicKeyPEM] failed to marshal public key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
