// Carga del certificado de cliente para el mTLS con la AEAT,
// desde .p12 (PKCS#12) o par PEM.

package aeat

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// LoadClientCert carga el certificado según la extensión del archivo:
// .p12/.pfx con password, o PEM (certificado y llave separados o combinados).
func LoadClientCert(certPath, keyPath, password string) (tls.Certificate, error) {
	if certPath == "" {
		return tls.Certificate{}, fmt.Errorf("aeat: AEAT_CERT_PATH no configurado")
	}
	lower := strings.ToLower(certPath)
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		return loadFromP12(certPath, password)
	}
	return loadFromPEM(certPath, keyPath)
}

// loadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func loadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	// pkcs12.Decode devuelve un solo certificado; para el mTLS de la AEAT
	// basta el certificado hoja.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// loadFromPEM carga certificado y llave desde archivos PEM
// (por separado o combinados en un solo archivo).
func loadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		return tls.LoadX509KeyPair(certPath, certPath)
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar certificado AEAT: %w", err)
	}
	return cert, nil
}
