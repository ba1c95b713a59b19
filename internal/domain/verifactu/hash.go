package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintLen longitud del hash hexadecimal (SHA-256 = 64 nibbles).
const FingerprintLen = 64

// Fingerprint calcula la huella Veri*FACTU: SHA-256 sobre los bytes UTF-8 de
// la cadena canónica, en hexadecimal minúscula. Pura y determinista: volver a
// calcularla desde la cadena almacenada debe reproducir la huella almacenada;
// esa igualdad es la garantía de inalterabilidad y cualquier auditor puede
// verificarla con solo el registro fiscal.
func Fingerprint(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
