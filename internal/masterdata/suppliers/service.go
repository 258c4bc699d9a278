package suppliers

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/clinova/clinova/internal/masterdata/shared"
	"github.com/clinova/clinova/internal/platform/httpx"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// SupplierInput carries create/update payloads.
type SupplierInput struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Address string `json:"address" validate:"max=300"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=20"`
	GSTIN   string `json:"gstin" validate:"max=15"`
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("%w: invalid supplier ID", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, input SupplierInput) (Supplier, error) {
	if err := s.check(input); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, Supplier{
		Name:    input.Name,
		Address: input.Address,
		Email:   input.Email,
		Phone:   input.Phone,
		GSTIN:   input.GSTIN,
	})
}

func (s *Service) Update(ctx context.Context, id int64, input SupplierInput) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid supplier ID", httpx.ErrValidation)
	}
	if err := s.check(input); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, Supplier{
		Name:    input.Name,
		Address: input.Address,
		Email:   input.Email,
		Phone:   input.Phone,
		GSTIN:   input.GSTIN,
	})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid supplier ID", httpx.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) check(input SupplierInput) error {
	if err := s.validate.Struct(input); err != nil {
		if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
			return fmt.Errorf("%w: field %s", httpx.ErrValidation, fields[0].Field())
		}
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}
