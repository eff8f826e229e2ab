package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/domain"
)

const demoPassword = "ChangeMe123!"

type demoUser struct {
	username   string
	email      string
	firstName  string
	lastName   string
	role       domain.Role
	department string
	companyID  string
}

var demoUsers = []demoUser{
	{"admin", "admin@flowtls.example", "System", "Administrator", domain.RoleAdmin, "IT", "FLOWTLS001"},
	{"jsmith", "jsmith@flowtls.example", "John", "Smith", domain.RoleManager, "Support", "FLOWTLS001"},
	{"achen", "achen@flowtls.example", "Amy", "Chen", domain.RoleAgent, "Support", "FLOWTLS001"},
	{"sjohnson", "sjohnson@client.example", "Sara", "Johnson", domain.RoleUser, "Operations", "CLIENT001"},
}

// SeedDemoData inserts demo companies, accounts and tickets. Inserts are
// idempotent: existing rows are left alone. Passwords are hashed here because
// the KDF salts every credential individually, which static SQL cannot do.
func SeedDemoData(ctx context.Context, pool *pgxpool.Pool, params auth.Argon2Params, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping demo seed")
		return nil
	}

	companies := [][3]string{
		{"FLOWTLS001", "FlowTLS Inc", "support@flowtls.example"},
		{"CLIENT001", "Acme Logistics", "it@acme-logistics.example"},
		{"CLIENT002", "Globex Manufacturing", "helpdesk@globex.example"},
	}
	for _, c := range companies {
		_, err := pool.Exec(ctx, `
			INSERT INTO companies (company_id, company_name, contact_email, is_active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (company_id) DO NOTHING`,
			c[0], c[1], c[2])
		if err != nil {
			return fmt.Errorf("seed company %s: %w", c[0], err)
		}
	}

	for _, u := range demoUsers {
		salt, err := auth.GenerateSalt()
		if err != nil {
			return err
		}
		hash := auth.HashPassword(demoPassword, salt, params)
		perms := domain.DefaultPermissions(u.role)
		_, err = pool.Exec(ctx, `
			INSERT INTO users (
				username, email, password_hash, salt, first_name, last_name, role,
				department, company_id, is_active, created_by,
				can_create_users, can_deactivate_users, can_reset_passwords,
				can_manage_tickets, can_view_all_tickets, can_delete_tickets, can_export_data
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, 'seed',
				$10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (username) DO NOTHING`,
			u.username, u.email, hash, salt, u.firstName, u.lastName, string(u.role),
			u.department, u.companyID,
			perms.CreateUsers, perms.DeactivateUsers, perms.ResetPasswords,
			perms.ManageTickets, perms.ViewAllTickets, perms.DeleteTickets, perms.ExportData)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	var ticketCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&ticketCount); err != nil {
		return fmt.Errorf("seed tickets: %w", err)
	}
	if ticketCount == 0 {
		now := time.Now().UTC()
		samples := []struct {
			title       string
			description string
			priority    domain.TicketPriority
			status      domain.TicketStatus
			assignedTo  string
			category    string
			reporter    string
			companyID   string
		}{
			{"VPN tunnel drops every hour", "Site-to-site tunnel to DC2 renegotiates and drops traffic.", domain.TicketPriorityCritical, domain.TicketStatusOpen, "Amy Chen", "Network", "Sara Johnson", "CLIENT001"},
			{"Quarterly report export fails", "CSV export times out for ranges over 30 days.", domain.TicketPriorityHigh, domain.TicketStatusInProgress, "Amy Chen", "Application", "John Smith", "FLOWTLS001"},
			{"Request new account for contractor", "Contractor starting Monday needs portal access.", domain.TicketPriorityMedium, domain.TicketStatusOpen, "", "Access", "Sara Johnson", "CLIENT001"},
			{"Printer toner warning", "Third floor printer shows low toner.", domain.TicketPriorityLow, domain.TicketStatusOpen, "", "Facilities", "Sara Johnson", "CLIENT002"},
		}
		for _, sample := range samples {
			due := domain.DueDateFor(sample.priority, now)
			var ticketID int64
			err := pool.QueryRow(ctx, `
				INSERT INTO tickets (
					title, description, priority, status, assigned_to, category,
					due_date, reporter, company_id, source, modified_by
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'Seed', 'seed')
				RETURNING id`,
				sample.title, sample.description, string(sample.priority), string(sample.status),
				sample.assignedTo, sample.category, due, sample.reporter, sample.companyID).Scan(&ticketID)
			if err != nil {
				return fmt.Errorf("seed ticket %q: %w", sample.title, err)
			}
			_, err = pool.Exec(ctx, `
				INSERT INTO ticket_history (ticket_id, action_type, new_value, created_by)
				VALUES ($1, $2, $3, 'seed')`,
				ticketID, string(domain.HistoryActionCreated), sample.title)
			if err != nil {
				return fmt.Errorf("seed ticket history %q: %w", sample.title, err)
			}
		}
	}

	logger.Info("demo data seeded")
	return nil
}
