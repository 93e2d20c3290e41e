package identity

import "context"

// Store describes the persistence operations required by the identity
// subsystem.
type Store interface {
	Users() UserStore
	Institutes() InstituteStore
	Sequences() SequenceStore
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role        Role
	InstituteID string
}

// UserUpdate carries a partial user update; nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
	Status       *string
	InstituteID  *string
	Profile      *Profile
}

// UserStore manages identity records. Read operations never include the
// password hash except FindByEmail, which backs the login path.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	Delete(ctx context.Context, id string) error

	// RecordLoginSuccess resets failed_attempts and stamps last_login in a
	// single statement; RecordLoginFailure increments the counter and
	// returns the new value.
	RecordLoginSuccess(ctx context.Context, id string) error
	RecordLoginFailure(ctx context.Context, id string) (int, error)
}

// InstituteUpdate carries a partial institute update.
type InstituteUpdate struct {
	Name         *string
	Address      *string
	ContactEmail *string
	ContactPhone *string
	Status       *string
}

// InstituteStore manages institutes and their member buckets.
type InstituteStore interface {
	Create(ctx context.Context, inst *Institute) error
	Find(ctx context.Context, id string) (*Institute, error)
	List(ctx context.Context) ([]*Institute, error)
	Update(ctx context.Context, id string, upd InstituteUpdate) (*Institute, error)
	// Delete removes the institute record only. Member identities keep
	// their (now dangling) affiliation; this mirrors the documented
	// no-cascade behavior.
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, instituteID, bucket, userID string) error
}

// SequenceStore hands out monotonically increasing numbers per key. The
// increment must be atomic in the backing store: concurrent callers for the
// same key never observe the same value.
type SequenceStore interface {
	Next(ctx context.Context, key string) (int64, error)
}
