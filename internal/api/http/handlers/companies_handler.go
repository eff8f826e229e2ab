package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flowtls/syncplus/internal/api/dto"
	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/service"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

// CompaniesHandler manages company endpoints.
type CompaniesHandler struct {
	service *service.UserService
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(userService *service.UserService) *CompaniesHandler {
	return &CompaniesHandler{service: userService}
}

// CreateCompany POST /companies.
func (h *CompaniesHandler) CreateCompany(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	company, err := h.service.CreateCompany(c.Context(), session, companyInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": companyResponse(company)})
}

// UpdateCompany PUT /companies/:company_id.
func (h *CompaniesHandler) UpdateCompany(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	company, err := h.service.UpdateCompany(c.Context(), session, c.Params("company_id"), companyInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponse(company)})
}

// ListCompanies GET /companies.
func (h *CompaniesHandler) ListCompanies(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	companies, err := h.service.ListCompanies(c.Context(), session)
	if err != nil {
		return err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		items = append(items, companyResponse(&companies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCompany GET /companies/:company_id.
func (h *CompaniesHandler) GetCompany(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	company, err := h.service.GetCompany(c.Context(), session, c.Params("company_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponse(company)})
}

func companyInput(req dto.CompanyRequest) service.CompanyInput {
	return service.CompanyInput{
		CompanyID:    req.CompanyID,
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Address:      req.Address,
		IsActive:     req.IsActive,
	}
}

func companyResponse(company *domain.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:           company.ID,
		CompanyID:    company.CompanyID,
		CompanyName:  company.CompanyName,
		ContactEmail: company.ContactEmail,
		Phone:        company.Phone,
		Address:      company.Address,
		IsActive:     company.IsActive,
		CreatedAt:    company.CreatedAt,
	}
}
