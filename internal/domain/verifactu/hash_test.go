package verifactu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurestic/verifactu-api/internal/domain/verifactu"
)

// Huella SHA-256 esperada para testCanonical (ver canonical_test.go).
// Vector calculado manualmente; es el canario de la integración AEAT.
const testFingerprint = "dcf1ed7cba271129b1255177938e44825d1ffb8f3ecc77fb7c31df4d9f9cc1b2"

func TestFingerprint_VectorExacto(t *testing.T) {
	assert.Equal(t, testFingerprint, verifactu.Fingerprint(testCanonical),
		"La huella debe coincidir exactamente con el vector SHA-256 de referencia")
}

func TestFingerprint_LongitudYMinusculas(t *testing.T) {
	got := verifactu.Fingerprint(testCanonical)
	require.Len(t, got, verifactu.FingerprintLen)
	assert.Regexp(t, "^[0-9a-f]{64}$", got,
		"La huella debe ser hexadecimal en minúsculas")
}

func TestFingerprint_RoundTrip(t *testing.T) {
	// Recalcular desde la cadena almacenada reproduce la huella almacenada:
	// esta igualdad es la garantía de inalterabilidad.
	first := verifactu.Fingerprint(testCanonical)
	assert.Equal(t, first, verifactu.Fingerprint(testCanonical))
}

func TestFingerprint_EncadenadoCambiaHuella(t *testing.T) {
	canonicalB := "IDEmisorFactura=B12345678&" +
		"NumSerieFactura=INV/2024/002&" +
		"FechaExpedicionFactura=16-01-2024&" +
		"TipoFactura=F1&" +
		"CuotaTotal=42.00&" +
		"ImporteTotal=242.00&" +
		"Huella=" + testFingerprint + "&" +
		"FechaHoraHusoGenRegistro=2024-01-16T09:30:00+00:00"

	// Vector del segundo eslabón de la cadena.
	assert.Equal(t,
		"7f84fed5109da39a0eeb91369eca9a6ca1321bf50003ea925e46b43032c0b11e",
		verifactu.Fingerprint(canonicalB))
	assert.NotEqual(t, testFingerprint, verifactu.Fingerprint(canonicalB))
}

func TestFingerprint_SensibilidadAlInput(t *testing.T) {
	assert.NotEqual(t, verifactu.Fingerprint("abc"), verifactu.Fingerprint("abd"))
	// Vector conocido de SHA-256 para descartar un digest mal elegido.
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		verifactu.Fingerprint("abc"))
}
