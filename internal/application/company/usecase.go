// Package company casos de uso de gestión de empresas emisoras.
package company

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurestic/verifactu-api/internal/application/dto"
	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// CompanyUseCase alta y consulta de empresas.
type CompanyUseCase struct {
	repo repository.CompanyRepository
}

func NewCompanyUseCase(repo repository.CompanyRepository) *CompanyUseCase {
	return &CompanyUseCase{repo: repo}
}

// Create da de alta una empresa. El NIF se normaliza a mayúsculas sin espacios.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	nif := strings.ToUpper(strings.TrimSpace(in.NIF))
	if in.Name == "" || nif == "" {
		return nil, fmt.Errorf("name y nif son requeridos: %w", domain.ErrValidation)
	}
	env := in.AEATEnvironment
	if env == "" {
		env = "2" // pruebas por defecto
	}
	now := time.Now()
	c := &entity.Company{
		ID:               uuid.New().String(),
		Name:             in.Name,
		NIF:              nif,
		Address:          in.Address,
		Email:            in.Email,
		VerifactuEnabled: in.VerifactuEnabled,
		AEATEnvironment:  env,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return toResponse(c), nil
}

func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	c, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(c), nil
}

func (uc *CompanyUseCase) List(ctx context.Context) ([]*dto.CompanyResponse, error) {
	companies, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CompanyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, toResponse(c))
	}
	return out, nil
}

func toResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:               c.ID,
		Name:             c.Name,
		NIF:              c.NIF,
		Address:          c.Address,
		Email:            c.Email,
		VerifactuEnabled: c.VerifactuEnabled,
		AEATEnvironment:  c.AEATEnvironment,
		Status:           c.Status,
	}
}
