package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// CompanyRepo implementación Postgres del repositorio de empresas.
type CompanyRepo struct {
	q Querier
}

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

func NewCompanyRepo(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

func (r *CompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	query := `
		INSERT INTO companies (id, name, nif, address, email, verifactu_enabled, aeat_environment, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.q.Exec(ctx, query,
		company.ID,
		company.Name,
		company.NIF,
		nullIfEmpty(company.Address),
		nullIfEmpty(company.Email),
		company.VerifactuEnabled,
		company.AEATEnvironment,
		company.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("empresa con NIF %s: %w", company.NIF, domain.ErrDuplicate)
		}
		return fmt.Errorf("insertar empresa: %w", err)
	}
	return nil
}

func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `
		SELECT id, name, nif, COALESCE(address, ''), COALESCE(email, ''),
		       verifactu_enabled, aeat_environment, status, created_at, updated_at
		FROM companies WHERE id = $1`

	c := &entity.Company{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.NIF, &c.Address, &c.Email,
		&c.VerifactuEnabled, &c.AEATEnvironment, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consultar empresa: %w", err)
	}
	return c, nil
}

func (r *CompanyRepo) List(ctx context.Context) ([]*entity.Company, error) {
	query := `
		SELECT id, name, nif, COALESCE(address, ''), COALESCE(email, ''),
		       verifactu_enabled, aeat_environment, status, created_at, updated_at
		FROM companies ORDER BY name`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listar empresas: %w", err)
	}
	defer rows.Close()

	var companies []*entity.Company
	for rows.Next() {
		c := &entity.Company{}
		if err := rows.Scan(
			&c.ID, &c.Name, &c.NIF, &c.Address, &c.Email,
			&c.VerifactuEnabled, &c.AEATEnvironment, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("leer empresa: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
