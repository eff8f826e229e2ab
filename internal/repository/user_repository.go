package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowtls/syncplus/internal/domain"
)

const userColumns = `id, username, email, password_hash, salt, first_name, last_name, role,
           department, phone, company_id, is_active, created_at, last_login_at, created_by,
           can_create_users, can_deactivate_users, can_reset_passwords, can_manage_tickets,
           can_view_all_tickets, can_delete_tickets, can_export_data`

// UserRepository defines persistence access for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdateCredentials(ctx context.Context, id int64, passwordHash, salt string) error
	SetActive(ctx context.Context, id int64, active bool) error
	RecordLogin(ctx context.Context, id int64, at time.Time) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context, includeInactive bool) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, salt, first_name, last_name, role,
            department, phone, company_id, is_active, created_by,
            can_create_users, can_deactivate_users, can_reset_passwords, can_manage_tickets,
            can_view_all_tickets, can_delete_tickets, can_export_data)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Salt,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Department,
		user.Phone,
		user.CompanyID,
		user.IsActive,
		user.CreatedBy,
		user.Permissions.CreateUsers,
		user.Permissions.DeactivateUsers,
		user.Permissions.ResetPasswords,
		user.Permissions.ManageTickets,
		user.Permissions.ViewAllTickets,
		user.Permissions.DeleteTickets,
		user.Permissions.ExportData,
	).Scan(&user.ID, &user.CreatedAt)
}

// UpdateProfile writes profile fields and permission flags. Username, email
// and credentials are deliberately excluded; they have their own paths.
func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, role=$3, department=$4, phone=$5, company_id=$6,
            can_create_users=$7, can_deactivate_users=$8, can_reset_passwords=$9, can_manage_tickets=$10,
            can_view_all_tickets=$11, can_delete_tickets=$12, can_export_data=$13
        WHERE id=$14`

	cmd, err := r.pool.Exec(ctx, query,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Department,
		user.Phone,
		user.CompanyID,
		user.Permissions.CreateUsers,
		user.Permissions.DeactivateUsers,
		user.Permissions.ResetPasswords,
		user.Permissions.ManageTickets,
		user.Permissions.ViewAllTickets,
		user.Permissions.DeleteTickets,
		user.Permissions.ExportData,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) UpdateCredentials(ctx context.Context, id int64, passwordHash, salt string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash=$1, salt=$2 WHERE id=$3`,
		passwordHash, salt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET is_active=$1 WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at=$1 WHERE id=$2`, at, id)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE username=$1 OR email=$2`,
		username, email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) List(ctx context.Context, includeInactive bool) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Salt,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Department,
		&user.Phone,
		&user.CompanyID,
		&user.IsActive,
		&user.CreatedAt,
		&user.LastLoginAt,
		&user.CreatedBy,
		&user.Permissions.CreateUsers,
		&user.Permissions.DeactivateUsers,
		&user.Permissions.ResetPasswords,
		&user.Permissions.ManageTickets,
		&user.Permissions.ViewAllTickets,
		&user.Permissions.DeleteTickets,
		&user.Permissions.ExportData,
	)
}
