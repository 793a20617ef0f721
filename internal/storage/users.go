package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func scanUser(row interface{ Scan(dest ...interface{}) error }) (*types.User, error) {
	var u types.User
	var isActive, isAdmin, isManager int
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&isActive, &isAdmin, &isManager, &u.ProfilePicture, &u.CustomTitle,
		&u.CompetitiveTitle, &u.CompetitiveTitleReason, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.IsActive = intToBool(isActive)
	u.IsPlatformAdmin = intToBool(isAdmin)
	u.IsManager = intToBool(isManager)
	return &u, nil
}

const userColumns = `id, tenant_id, username, email, first_name, last_name, is_active,
	is_platform_admin, is_manager, profile_picture, custom_title, competitive_title,
	competitive_title_reason, created_at, updated_at`

func (s *SQLiteStore) GetUserByEmail(ctx tenantctx.Context, email string) (*types.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND email = ?`, ctx.TenantID, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: user with email %s not found", email)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get user by email: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByName(ctx tenantctx.Context, firstName, lastName string) (*types.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND first_name = ? AND last_name = ?`,
		ctx.TenantID, firstName, lastName)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: user %s %s not found", firstName, lastName)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get user by name: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx tenantctx.Context, userID string) (*types.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND id = ?`, ctx.TenantID, userID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) UsernameTaken(ctx tenantctx.Context, username string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE tenant_id = ? AND username = ?`, ctx.TenantID, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("storage: check username taken: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) CreateUser(ctx tenantctx.Context, u *types.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.db.Exec(`
		INSERT INTO users (id, tenant_id, username, email, first_name, last_name, is_active,
			is_platform_admin, is_manager, profile_picture, custom_title, competitive_title,
			competitive_title_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, ctx.TenantID, u.Username, u.Email, u.FirstName, u.LastName, boolToInt(u.IsActive),
		boolToInt(u.IsPlatformAdmin), boolToInt(u.IsManager), u.ProfilePicture, u.CustomTitle,
		u.CompetitiveTitle, u.CompetitiveTitleReason, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateUserName(ctx tenantctx.Context, userID, firstName, lastName string) error {
	_, err := s.db.Exec(`UPDATE users SET first_name = ?, last_name = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		firstName, lastName, time.Now(), ctx.TenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: update user name: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertExternalIdentity(ctx tenantctx.Context, ei *types.ExternalIdentity) error {
	if ei.ID == "" {
		ei.ID = uuid.NewString()
	}
	if ei.CreatedAt.IsZero() {
		ei.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO external_identities (id, tenant_id, provider, external_user_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, provider, external_user_id)
		DO UPDATE SET user_id = excluded.user_id`,
		ei.ID, ctx.TenantID, ei.Provider, ei.ExternalUserID, ei.UserID, ei.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert external identity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetExternalIdentity(ctx tenantctx.Context, provider types.SourceType, externalUserID string) (*types.ExternalIdentity, error) {
	var ei types.ExternalIdentity
	err := s.db.QueryRow(`
		SELECT id, tenant_id, provider, external_user_id, user_id, created_at
		FROM external_identities WHERE tenant_id = ? AND provider = ? AND external_user_id = ?`,
		ctx.TenantID, provider, externalUserID,
	).Scan(&ei.ID, &ei.TenantID, &ei.Provider, &ei.ExternalUserID, &ei.UserID, &ei.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: external identity not found")
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get external identity: %w", err)
	}
	return &ei, nil
}

// ListTenantUsers satisfies metrics.Store, used to award competitive
// titles across every developer in the tenant.
func (s *SQLiteStore) ListTenantUsers(ctx tenantctx.Context) ([]*types.User, error) {
	rows, err := s.db.Query(`SELECT `+userColumns+` FROM users WHERE tenant_id = ? ORDER BY email`, ctx.TenantID)
	if err != nil {
		return nil, fmt.Errorf("storage: list tenant users: %w", err)
	}
	defer rows.Close()

	var out []*types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ClearCompetitiveTitles resets every user's award fields before a fresh
// population run re-awards them.
func (s *SQLiteStore) ClearCompetitiveTitles(ctx tenantctx.Context) error {
	_, err := s.db.Exec(`UPDATE users SET competitive_title = '', competitive_title_reason = '' WHERE tenant_id = ?`, ctx.TenantID)
	if err != nil {
		return fmt.Errorf("storage: clear competitive titles: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveUserTitle(ctx tenantctx.Context, userID string, title types.CompetitiveTitle, reason string) error {
	_, err := s.db.Exec(`
		UPDATE users SET competitive_title = ?, competitive_title_reason = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		title, reason, time.Now(), ctx.TenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: save user title: %w", err)
	}
	return nil
}
