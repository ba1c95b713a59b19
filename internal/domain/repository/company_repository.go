package repository

import (
	"context"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// CompanyRepository puerto de persistencia de empresas.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	List(ctx context.Context) ([]*entity.Company, error)
}
