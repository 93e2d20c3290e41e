package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"edunexus.org/internal/ids"
	"edunexus.org/internal/obs"
)

// Service implements the identity lifecycle: registration, login, token
// authentication and CRUD over users and institutes. All role legality and
// code minting rules live here; HTTP handlers only translate errors.
type Service struct {
	store  Store
	tokens *TokenService
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, tokens *TokenService) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	if tokens == nil {
		return nil, errors.New("identity: token service is required")
	}
	return &Service{store: store, tokens: tokens, now: time.Now}, nil
}

// Tokens exposes the token service so the HTTP layer and the page gate
// share one verification path.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// RegisterInput is the identity-creation payload shared by open
// registration and the admin-facing user/staff endpoints.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        Role
	InstituteID string
	Profile     Profile
}

// Register validates the payload, mints the human-readable code and
// persists the identity. When the identity is affiliated with an institute
// it is also appended to the institute's role bucket — a secondary,
// best-effort write that never fails the request.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	in.InstituteID = strings.TrimSpace(in.InstituteID)
	if in.Role != RoleSuperAdmin && in.InstituteID == "" {
		return nil, fmt.Errorf("%w: institute_id is required for role %s", ErrInvalidInput, in.Role)
	}
	if in.InstituteID != "" {
		inst, err := s.store.Institutes().Find(ctx, in.InstituteID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: institute %s", ErrNotFound, in.InstituteID)
			}
			return nil, err
		}
		if !inst.Type.Permits(in.Role) {
			return nil, fmt.Errorf("%w: %s does not accept role %s", ErrRoleNotAllowed, inst.Type, in.Role)
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	// A failed create below burns this sequence number. That is accepted:
	// codes stay unique and monotonic, gaps carry no meaning.
	seq, err := s.store.Sequences().Next(ctx, string(in.Role))
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           ids.New(),
		Code:         fmt.Sprintf("%s-%04d", in.Role.CodePrefix(), seq),
		InstituteID:  in.InstituteID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       StatusActive,
		Profile:      in.Profile,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	if bucket, ok := MemberBucket(in.Role); ok && in.InstituteID != "" {
		if err := s.store.Institutes().AddMember(ctx, in.InstituteID, bucket, user.ID); err != nil {
			// Not wrapped in a transaction with the user insert; a failure
			// here leaves the identity without a membership row.
			obs.LogRequest(map[string]any{
				"level": "warn", "msg": "member append failed",
				"institute_id": in.InstituteID, "user_id": user.ID, "error": err.Error(),
			})
		}
	}

	user.PasswordHash = ""
	return user, nil
}

// LoginResult is what a successful credential check yields.
type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a session token. Credential
// verification strictly precedes issuance: a failed password check
// increments failed_attempts and no token exists; success resets the
// counter and stamps last_login before the token is signed.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status != StatusActive {
		return nil, ErrInactiveAccount
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		if n, ferr := s.store.Users().RecordLoginFailure(ctx, user.ID); ferr == nil {
			user.FailedAttempts = n
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.store.Users().RecordLoginSuccess(ctx, user.ID); err != nil {
		return nil, err
	}
	user.FailedAttempts = 0
	now := s.now().UTC()
	user.LastLogin = &now

	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Authenticate verifies a session token and loads the referenced identity
// with the password hash excluded. A verified token whose subject no longer
// exists is as good as no token.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.Users().Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// GetUser loads one identity.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users().Find(ctx, id)
}

// ListUsers lists identities, optionally narrowed by role or institute.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	return s.store.Users().List(ctx, filter)
}

// UpdateUser applies a partial update. A password change is re-hashed here;
// a role change or institute move re-checks institute-type legality.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate, plainPassword string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if plainPassword != "" {
		hash, err := HashPassword(plainPassword)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Status != nil && *upd.Status != StatusActive && *upd.Status != StatusInactive {
		return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, *upd.Status)
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *upd.Role)
	}
	if upd.InstituteID != nil {
		trimmed := strings.TrimSpace(*upd.InstituteID)
		upd.InstituteID = &trimmed
	}
	// A role change or an institute move re-runs the legality check against
	// the resulting (role, institute type) pair.
	if upd.Role != nil || upd.InstituteID != nil {
		current, err := s.store.Users().Find(ctx, id)
		if err != nil {
			return nil, err
		}
		role := current.Role
		if upd.Role != nil {
			role = *upd.Role
		}
		instituteID := current.InstituteID
		if upd.InstituteID != nil {
			instituteID = *upd.InstituteID
		}
		if instituteID != "" {
			inst, err := s.store.Institutes().Find(ctx, instituteID)
			if err != nil {
				return nil, err
			}
			if !inst.Type.Permits(role) {
				return nil, fmt.Errorf("%w: %s does not accept role %s", ErrRoleNotAllowed, inst.Type, role)
			}
		}
	}
	return s.store.Users().Update(ctx, id, upd)
}

// UpdateProfile updates the caller's own name and profile sub-fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, name *string, profile *Profile) (*User, error) {
	return s.store.Users().Update(ctx, userID, UserUpdate{Name: name, Profile: profile})
}

// DeleteUser removes an identity. Generated codes are never reused.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users().Delete(ctx, id)
}

// InstituteInput is the institute-creation payload.
type InstituteInput struct {
	Name         string
	Type         InstituteType
	Address      string
	ContactEmail string
	ContactPhone string
	OwnerID      string
}

// CreateInstitute validates the owner (must exist with role admin), mints
// the INST code and persists the record.
func (s *Service) CreateInstitute(ctx context.Context, in InstituteInput) (*Institute, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: institute name is required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown institute type %q", ErrInvalidInput, in.Type)
	}
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	if in.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrInvalidInput)
	}
	owner, err := s.store.Users().Find(ctx, in.OwnerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid institute owner", ErrInvalidInput)
		}
		return nil, err
	}
	if owner.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: institute owner must have role admin", ErrInvalidInput)
	}

	seq, err := s.store.Sequences().Next(ctx, "institute")
	if err != nil {
		return nil, err
	}
	inst := &Institute{
		ID:           ids.New(),
		Code:         fmt.Sprintf("INST-%04d", seq),
		Name:         in.Name,
		Type:         in.Type,
		Address:      strings.TrimSpace(in.Address),
		ContactEmail: strings.TrimSpace(strings.ToLower(in.ContactEmail)),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		OwnerID:      owner.ID,
		Status:       StatusActive,
	}
	if err := s.store.Institutes().Create(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// GetInstitute loads one institute with its member buckets.
func (s *Service) GetInstitute(ctx context.Context, id string) (*Institute, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: institute id is required", ErrInvalidInput)
	}
	return s.store.Institutes().Find(ctx, id)
}

// ListInstitutes lists every institute.
func (s *Service) ListInstitutes(ctx context.Context) ([]*Institute, error) {
	return s.store.Institutes().List(ctx)
}

// UpdateInstitute applies a partial update.
func (s *Service) UpdateInstitute(ctx context.Context, id string, upd InstituteUpdate) (*Institute, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: institute id is required", ErrInvalidInput)
	}
	if upd.Status != nil && *upd.Status != StatusActive && *upd.Status != StatusInactive {
		return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, *upd.Status)
	}
	return s.store.Institutes().Update(ctx, id, upd)
}

// DeleteInstitute removes the institute record. Member identities are NOT
// cascaded: they keep a dangling affiliation, matching the documented
// behavior of the system this one replaces.
func (s *Service) DeleteInstitute(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: institute id is required", ErrInvalidInput)
	}
	return s.store.Institutes().Delete(ctx, id)
}
