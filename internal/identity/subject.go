package identity

import "crypto/x509/pkix"

// pkixEphemeralSubject names a temporary self-signed certificate generated
// under AllowEphemeralIdentity so operators can recognize it in logs and
// peer certificate dumps.
func pkixEphemeralSubject() pkix.Name {
	return pkix.Name{
		CommonName:   "freelan-ephemeral-identity",
		Organization: []string{"freelan-go (ephemeral, unconfigured identity)"},
	}
}
