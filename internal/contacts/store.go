package contacts

import "context"

// Store is the persistence contract for contacts.
//
// The relational schema is externally owned; this interface is the only
// thing the rest of the codebase sees.
type Store interface {
	Create(ctx context.Context, c Contact) (Contact, error)
	GetByID(ctx context.Context, id string) (Contact, error)
	List(ctx context.Context, q ListQuery) (ListResult, error)

	// FindByFilter returns contacts matching the intersection of all
	// provided predicates. An empty filter matches everything.
	FindByFilter(ctx context.Context, f Filter) ([]Contact, error)

	// ExistingPhones returns the set of phone_e164 values already stored.
	// Used by the CSV importer for dedupe.
	ExistingPhones(ctx context.Context) (map[string]struct{}, error)
}

// DNCStore is the persistence contract for the do-not-call list.
type DNCStore interface {
	IsListed(ctx context.Context, phoneE164 string) (bool, error)
	ListPhones(ctx context.Context) (map[string]struct{}, error)
	Add(ctx context.Context, e DNCEntry) error
	Remove(ctx context.Context, phoneE164 string) error
	List(ctx context.Context) ([]DNCEntry, error)
}
