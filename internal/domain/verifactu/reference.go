package verifactu

import (
	"strings"
	"time"
)

// referenceHashLen caracteres de huella incluidos en la referencia.
const referenceHashLen = 8

// Reference genera el código de referencia legible de un registro:
//
//	VF-<YYYYMMDD>-<serie con / sustituido por ->-<8 primeros hex de la huella>
//
// Es una comodidad de visualización. Nunca entra en la cadena canónica ni en
// el cálculo de la huella.
func Reference(invoiceDate time.Time, serial, fingerprint string) string {
	short := fingerprint
	if len(short) > referenceHashLen {
		short = short[:referenceHashLen]
	}
	return "VF-" + invoiceDate.Format("20060102") + "-" +
		strings.ReplaceAll(serial, "/", "-") + "-" + short
}
