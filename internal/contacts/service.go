package contacts

import (
	"context"
	"strings"

	"outdial-platform/internal/apperr"
)

// Service owns contact creation and lookup rules.
// The call core only reads contacts; writes happen here and in the importer.
type Service struct {
	store Store
	dnc   DNCStore
}

func NewService(store Store, dnc DNCStore) *Service {
	return &Service{store: store, dnc: dnc}
}

// CreateRequest is the API shape for a single contact create.
type CreateRequest struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	PhoneE164 string   `json:"phone_e164"`
	Email     string   `json:"email"`
	Tags      []string `json:"tags"`
	Source    string   `json:"source"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Contact, error) {
	phone := strings.TrimSpace(req.PhoneE164)
	if !IsE164(phone) {
		return Contact{}, apperr.InvalidStatef("phone_e164 must be E.164 format")
	}

	c := Contact{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      FormatForDisplay(phone),
		PhoneE164:  phone,
		Email:      strings.TrimSpace(req.Email),
		Tags:       req.Tags,
		Source:     strings.TrimSpace(req.Source),
		DedupeHash: DedupeHash(phone),
	}
	return s.store.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	if id == "" {
		return Contact{}, apperr.InvalidStatef("contact id required")
	}
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	return s.store.List(ctx, q)
}

// --- Do-not-call management ---

func (s *Service) DNCAdd(ctx context.Context, phone, reason string) (DNCEntry, error) {
	normalized := ToE164(phone)
	if !IsE164(normalized) {
		return DNCEntry{}, apperr.InvalidStatef("invalid phone number")
	}
	e := DNCEntry{PhoneE164: normalized, Reason: strings.TrimSpace(reason)}
	if err := s.dnc.Add(ctx, e); err != nil {
		return DNCEntry{}, err
	}
	return e, nil
}

func (s *Service) DNCRemove(ctx context.Context, phone string) error {
	normalized := ToE164(phone)
	if !IsE164(normalized) {
		return apperr.InvalidStatef("invalid phone number")
	}
	return s.dnc.Remove(ctx, normalized)
}

func (s *Service) DNCList(ctx context.Context) ([]DNCEntry, error) {
	return s.dnc.List(ctx)
}
