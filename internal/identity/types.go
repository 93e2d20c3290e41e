package identity

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Profile carries the optional descriptive fields of an identity. Role
// specific details (teaching subject, enrollment data) live here as well:
// the store persists the whole profile as one document column.
type Profile struct {
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	// Teacher details.
	Subject        string `json:"subject,omitempty"`
	Qualifications string `json:"qualifications,omitempty"`
	Experience     int    `json:"experience,omitempty"`

	// Student details.
	EnrollmentNumber string `json:"enrollment_number,omitempty"`
	Course           string `json:"course,omitempty"`
	Year             int    `json:"year,omitempty"`
}

// User is an identity record. Code is assigned exactly once at creation and
// never reassigned; PasswordHash is excluded from JSON and from every read
// projection except the login lookup.
type User struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	InstituteID    string     `json:"institute_id,omitempty"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	Status         string     `json:"status"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
	Profile        Profile    `json:"profile"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Institute is the tenant-like grouping entity. Member ID slices are
// partitioned by role bucket; academic types use Teachers/Students, the
// company type uses Employees/HRManagers.
type Institute struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Type         InstituteType `json:"type"`
	Address      string        `json:"address,omitempty"`
	ContactEmail string        `json:"contact_email,omitempty"`
	ContactPhone string        `json:"contact_phone,omitempty"`
	OwnerID      string        `json:"owner_id"`
	Status       string        `json:"status"`
	Teachers     []string      `json:"teachers,omitempty"`
	Students     []string      `json:"students,omitempty"`
	Employees    []string      `json:"employees,omitempty"`
	HRManagers   []string      `json:"hr_managers,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
