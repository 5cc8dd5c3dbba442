package crypto

import (
	"bytes"
	"testing"
)

func TestEphemeralKeyPairECDHSymmetric(t *testing.T) {
	for _, curve := range DefaultCurvePreference {
		curve := curve
		t.Run(curve.String(), func(t *testing.T) {
			a, err := GenerateEphemeralKeyPair(curve, nil)
			if err != nil {
				t.Fatalf("GenerateEphemeralKeyPair(a) error: %v", err)
			}
			b, err := GenerateEphemeralKeyPair(curve, nil)
			if err != nil {
				t.Fatalf("GenerateEphemeralKeyPair(b) error: %v", err)
			}

			zA, err := a.ECDH(b.PublicKeyBytes())
			if err != nil {
				t.Fatalf("a.ECDH(b) error: %v", err)
			}
			zB, err := b.ECDH(a.PublicKeyBytes())
			if err != nil {
				t.Fatalf("b.ECDH(a) error: %v", err)
			}

			if !bytes.Equal(zA, zB) {
				t.Errorf("shared secrets differ: %x vs %x", zA, zB)
			}
		})
	}
}

func TestNegotiateCurveNoMutual(t *testing.T) {
	_, err := NegotiateCurve([]Curve{CurveSecp256k1}, []Curve{CurveSecp384r1})
	if err == nil {
		t.Fatal("expected error for no mutual curve")
	}
}

func TestNegotiateCurvePicksFirstMutual(t *testing.T) {
	got, err := NegotiateCurve(DefaultCurvePreference, []Curve{CurveSecp521r1, CurveSecp384r1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != CurveSecp384r1 {
		t.Errorf("got %v, want %v", got, CurveSecp384r1)
	}
}
