package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"edunexus.org/internal/identity"
)

type userStore struct {
	db *sql.DB
}

var _ identity.UserStore = (*userStore)(nil)

// userColumns is the read projection shared by every lookup except the
// login path: the password hash never leaves FindByEmail.
const userColumns = `id, code, institute_id, name, email, role, status, last_login, failed_attempts, profile, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *identity.User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, code, institute_id, name, email, password_hash, role, status, profile)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning created_at, updated_at
	`, u.ID, u.Code, nullIfEmpty(u.InstituteID), u.Name, u.Email, u.PasswordHash, string(u.Role), u.Status, profile)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return fmt.Errorf("%w: email or code already registered", identity.ErrConflict)
			case pgErrForeignKeyViolation:
				return identity.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*identity.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where id = $1
	`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		u           identity.User
		instituteID sql.NullString
		lastLogin   sql.NullTime
		rawProfile  []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select id, code, institute_id, name, email, password_hash, role, status, last_login, failed_attempts, profile, created_at, updated_at
		from users
		where email = $1
	`, email).Scan(
		&u.ID, &u.Code, &instituteID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Role, &u.Status, &lastLogin, &u.FailedAttempts, &rawProfile,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.InstituteID = instituteID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if len(rawProfile) > 0 {
		if err := json.Unmarshal(rawProfile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return &u, nil
}

func (s *userStore) List(ctx context.Context, filter identity.UserFilter) ([]*identity.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		where []string
		args  []any
		idx   = 1
	)
	if filter.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", idx))
		args = append(args, string(filter.Role))
		idx++
	}
	if filter.InstituteID != "" {
		where = append(where, fmt.Sprintf("institute_id = $%d", idx))
		args = append(args, filter.InstituteID)
		idx++
	}
	query := `select ` + userColumns + ` from users`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by code"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *userStore) Update(ctx context.Context, id string, upd identity.UserUpdate) (*identity.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", idx))
		args = append(args, *upd.PasswordHash)
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", idx))
		args = append(args, string(*upd.Role))
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if upd.InstituteID != nil {
		sets = append(sets, fmt.Sprintf("institute_id = $%d", idx))
		args = append(args, nullIfEmpty(*upd.InstituteID))
		idx++
	}
	if upd.Profile != nil {
		profile, err := json.Marshal(upd.Profile)
		if err != nil {
			return nil, fmt.Errorf("marshal profile: %w", err)
		}
		sets = append(sets, fmt.Sprintf("profile = $%d", idx))
		args = append(args, profile)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, fmt.Errorf("%w: email already registered", identity.ErrConflict)
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, identity.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *userStore) RecordLoginSuccess(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set failed_attempts = 0, last_login = now(), updated_at = now()
		where id = $1
	`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *userStore) RecordLoginFailure(ctx context.Context, id string) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		update users
		set failed_attempts = failed_attempts + 1, updated_at = now()
		where id = $1
		returning failed_attempts
	`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, identity.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*identity.User, error) {
	var (
		u           identity.User
		instituteID sql.NullString
		lastLogin   sql.NullTime
		rawProfile  []byte
	)
	err := row.Scan(
		&u.ID, &u.Code, &instituteID, &u.Name, &u.Email,
		&u.Role, &u.Status, &lastLogin, &u.FailedAttempts, &rawProfile,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.InstituteID = instituteID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if len(rawProfile) > 0 {
		if err := json.Unmarshal(rawProfile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return &u, nil
}
