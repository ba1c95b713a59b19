package verifactu_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aurestic/verifactu-api/internal/domain/verifactu"
)

func TestReference_Formato(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ref := verifactu.Reference(date, "INV/2024/001", testFingerprint)

	assert.Equal(t, "VF-20240115-INV-2024-001-dcf1ed7c", ref,
		"Formato esperado: VF-YYYYMMDD-serie-con-guiones-hash8")
}

func TestReference_SinBarras(t *testing.T) {
	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	ref := verifactu.Reference(date, "A/B/C", testFingerprint)
	assert.False(t, strings.Contains(ref[3:], "/"),
		"Las barras de la serie deben sustituirse por guiones")
	assert.True(t, strings.HasPrefix(ref, "VF-20240302-"))
}

func TestReference_HuellaCorta(t *testing.T) {
	// Una huella más corta de 8 caracteres no debe provocar un panic de slice.
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ref := verifactu.Reference(date, "X", "abc")
	assert.Equal(t, "VF-20240115-X-abc", ref)
}
