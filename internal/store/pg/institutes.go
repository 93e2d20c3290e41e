package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"edunexus.org/internal/identity"
)

type instituteStore struct {
	db *sql.DB
}

var _ identity.InstituteStore = (*instituteStore)(nil)

const instituteColumns = `id, code, name, type, address, contact_email, contact_phone, owner_id, status, created_at, updated_at`

func (s *instituteStore) Create(ctx context.Context, inst *identity.Institute) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		insert into institutes (id, code, name, type, address, contact_email, contact_phone, owner_id, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning created_at, updated_at
	`, inst.ID, inst.Code, inst.Name, string(inst.Type), nullIfEmpty(inst.Address),
		nullIfEmpty(inst.ContactEmail), nullIfEmpty(inst.ContactPhone), nullIfEmpty(inst.OwnerID), inst.Status)
	if err := row.Scan(&inst.CreatedAt, &inst.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return fmt.Errorf("%w: institute code already exists", identity.ErrConflict)
			case pgErrForeignKeyViolation:
				return fmt.Errorf("%w: institute owner", identity.ErrNotFound)
			}
		}
		return err
	}
	return nil
}

func (s *instituteStore) Find(ctx context.Context, id string) (*identity.Institute, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+instituteColumns+`
		from institutes
		where id = $1
	`, id)
	inst, err := scanInstitute(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadMembers(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *instituteStore) List(ctx context.Context) ([]*identity.Institute, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+instituteColumns+`
		from institutes
		order by code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*identity.Institute
	for rows.Next() {
		inst, err := scanInstitute(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *instituteStore) Update(ctx context.Context, id string, upd identity.InstituteUpdate) (*identity.Institute, error) {
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
	if upd.Address != nil {
		sets = append(sets, fmt.Sprintf("address = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Address))
		idx++
	}
	if upd.ContactEmail != nil {
		sets = append(sets, fmt.Sprintf("contact_email = $%d", idx))
		args = append(args, nullIfEmpty(*upd.ContactEmail))
		idx++
	}
	if upd.ContactPhone != nil {
		sets = append(sets, fmt.Sprintf("contact_phone = $%d", idx))
		args = append(args, nullIfEmpty(*upd.ContactPhone))
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update institutes set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
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

// Delete removes the institute and its membership rows only. Users that
// referenced the institute are untouched and keep a dangling affiliation.
func (s *instituteStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from institute_members where institute_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from institutes where id = $1`, id)
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
	return tx.Commit()
}

func (s *instituteStore) AddMember(ctx context.Context, instituteID, bucket, userID string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into institute_members (institute_id, bucket, user_id)
		values ($1, $2, $3)
		on conflict (institute_id, bucket, user_id) do nothing
	`, instituteID, bucket, userID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return identity.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *instituteStore) loadMembers(ctx context.Context, inst *identity.Institute) error {
	rows, err := s.db.QueryContext(ctx, `
		select bucket, user_id
		from institute_members
		where institute_id = $1
		order by created_at
	`, inst.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bucket, userID string
		if err := rows.Scan(&bucket, &userID); err != nil {
			return err
		}
		switch bucket {
		case "teachers":
			inst.Teachers = append(inst.Teachers, userID)
		case "students":
			inst.Students = append(inst.Students, userID)
		case "employees":
			inst.Employees = append(inst.Employees, userID)
		case "hr_managers":
			inst.HRManagers = append(inst.HRManagers, userID)
		}
	}
	return rows.Err()
}

func scanInstitute(row rowScanner) (*identity.Institute, error) {
	var (
		inst         identity.Institute
		address      sql.NullString
		contactEmail sql.NullString
		contactPhone sql.NullString
		ownerID      sql.NullString
	)
	err := row.Scan(
		&inst.ID, &inst.Code, &inst.Name, &inst.Type, &address,
		&contactEmail, &contactPhone, &ownerID, &inst.Status,
		&inst.CreatedAt, &inst.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	inst.Address = address.String
	inst.ContactEmail = contactEmail.String
	inst.ContactPhone = contactPhone.String
	inst.OwnerID = ownerID.String
	return &inst, nil
}
