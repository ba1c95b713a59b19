// seed_companies genera un script SQL de alta de empresas emisoras a partir
// de un censo CSV exportado en ISO-8859-1 (formato habitual de las
// exportaciones de gestorías: nombre;nif;direccion;email).
//
// Uso: go run ./cmd/seed_companies [ruta/censo.csv]
// Por defecto busca censo.csv en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/002_seed_companies.sql
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type companyRow struct {
	name    string
	nif     string
	address string
	email   string
}

func main() {
	csvPath := "censo.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// Las exportaciones vienen en Latin-1 y separadas por punto y coma.
	reader := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	seen := make(map[string]bool)
	var companies []companyRow
	for i, rec := range records {
		if len(rec) < 2 {
			continue
		}
		name := strings.TrimSpace(rec[0])
		nif := strings.ToUpper(strings.TrimSpace(rec[1]))
		// Saltar cabecera y filas sin NIF
		if i == 0 && strings.EqualFold(nif, "nif") {
			continue
		}
		if name == "" || nif == "" || seen[nif] {
			continue
		}
		seen[nif] = true
		row := companyRow{name: name, nif: nif}
		if len(rec) > 2 {
			row.address = strings.TrimSpace(rec[2])
		}
		if len(rec) > 3 {
			row.email = strings.TrimSpace(rec[3])
		}
		companies = append(companies, row)
	}

	if len(companies) == 0 {
		fmt.Fprintln(os.Stderr, "El censo no contiene empresas válidas")
		os.Exit(1)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "002_seed_companies.sql")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Empresas emisoras (censo de gestoría)\n")
	out.WriteString("-- Generado desde " + filepath.Base(csvPath) + "\n\n")
	out.WriteString("INSERT INTO companies (id, name, nif, address, email, verifactu_enabled, aeat_environment, status) VALUES\n")
	for i, c := range companies {
		sep := ","
		if i == len(companies)-1 {
			sep = ""
		}
		// Alta en ambiente de pruebas: el paso a producción es una decisión
		// explícita por empresa.
		fmt.Fprintf(out, "  ('%s', '%s', '%s', %s, %s, true, '2', 'active')%s\n",
			uuid.New().String(),
			escapeSQL(c.name),
			escapeSQL(c.nif),
			nullableSQL(c.address),
			nullableSQL(c.email),
			sep,
		)
	}
	out.WriteString("ON CONFLICT (nif) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address, email = EXCLUDED.email;\n")

	fmt.Printf("Generado %s: %d empresas\n", outPath, len(companies))
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func nullableSQL(s string) string {
	if s == "" {
		return "NULL"
	}
	return "'" + escapeSQL(s) + "'"
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
