package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowtls/syncplus/internal/domain"
)

// CompanyRepository stores shared company reference data.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	Update(ctx context.Context, company *domain.Company) error
	List(ctx context.Context) ([]domain.Company, error)
	GetByCompanyID(ctx context.Context, companyID string) (*domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository returns a Postgres-backed implementation.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (company_id, company_name, contact_email, phone, address, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		company.CompanyID,
		company.CompanyName,
		company.ContactEmail,
		company.Phone,
		company.Address,
		company.IsActive,
	).Scan(&company.ID, &company.CreatedAt)
}

func (r *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	const query = `
        UPDATE companies SET company_name=$1, contact_email=$2, phone=$3, address=$4, is_active=$5
        WHERE company_id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		company.CompanyName,
		company.ContactEmail,
		company.Phone,
		company.Address,
		company.IsActive,
		company.CompanyID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepository) List(ctx context.Context) ([]domain.Company, error) {
	const query = `
        SELECT id, company_id, company_name, contact_email, phone, address, is_active, created_at
        FROM companies ORDER BY company_name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(
			&company.ID,
			&company.CompanyID,
			&company.CompanyName,
			&company.ContactEmail,
			&company.Phone,
			&company.Address,
			&company.IsActive,
			&company.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, company)
	}
	return result, rows.Err()
}

func (r *companyRepository) GetByCompanyID(ctx context.Context, companyID string) (*domain.Company, error) {
	const query = `
        SELECT id, company_id, company_name, contact_email, phone, address, is_active, created_at
        FROM companies WHERE company_id=$1`
	var company domain.Company
	if err := r.pool.QueryRow(ctx, query, companyID).Scan(
		&company.ID,
		&company.CompanyID,
		&company.CompanyName,
		&company.ContactEmail,
		&company.Phone,
		&company.Address,
		&company.IsActive,
		&company.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &company, nil
}
