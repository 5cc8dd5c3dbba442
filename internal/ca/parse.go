package ca

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// parseCertificateFile accepts either PEM- or DER-encoded certificate
// bytes, matching the two encodings PRESENTATION and CA directories in
// practice mix (§4.1 carries DER on the wire; files on disk are usually
// PEM).
func parseCertificateFile(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		return x509.ParseCertificate(block.Bytes)
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("not valid PEM or DER: %w", err)
	}
	return cert, nil
}
