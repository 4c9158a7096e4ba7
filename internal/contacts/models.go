package contacts

import "time"

// Contact is a dial target. Rows are created by the API or CSV import and
// never mutated by the call core.
//
// Uniqueness invariant: phone_e164 is unique, enforced via dedupe_hash
// (SHA-256 of the E.164 phone) with a UNIQUE constraint in Postgres.
type Contact struct {
	ID        string   `json:"id" db:"id"`
	FirstName string   `json:"first_name,omitempty" db:"first_name"`
	LastName  string   `json:"last_name,omitempty" db:"last_name"`
	Phone     string   `json:"phone,omitempty" db:"phone"` // display form
	PhoneE164 string   `json:"phone_e164" db:"phone_e164"`
	Email     string   `json:"email,omitempty" db:"email"`
	Tags      []string `json:"tags,omitempty" db:"tags"`
	Source    string   `json:"source,omitempty" db:"source"`

	DedupeHash string `json:"-" db:"dedupe_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Filter selects contacts for listing and for job enrollment.
//
// Predicates intersect: every provided field constrains the result further.
// An absent field adds no constraint. Tags means "contact carries all of
// these tags", not "any".
type Filter struct {
	IDs    []string `json:"contactIds,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Source string   `json:"source,omitempty"`
}

// ListQuery is the paginated listing request for the contacts API.
type ListQuery struct {
	Page    int
	PerPage int

	// Q matches first_name/last_name/email, case-insensitive substring.
	Q      string
	Tags   []string
	Source string
	Phone  string
}

// ListResult carries one page plus the total row count.
type ListResult struct {
	Contacts []Contact `json:"data"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
	Total    int       `json:"total"`
}

// DNCEntry is one excluded phone number.
type DNCEntry struct {
	PhoneE164 string    `json:"phone_e164" db:"phone_e164"`
	Reason    string    `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
