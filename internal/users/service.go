package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

const (
	maxNameLength  = 100
	maxEmailLength = 255
)

// CreateInput is the payload accepted when creating a user.
type CreateInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.Required.Error("Name is required"),
			validation.RuneLength(1, maxNameLength).Error("Name too long"),
		),
		validation.Field(&in.Email,
			validation.Required.Error("Email is required"),
			is.EmailFormat.Error("Invalid email format"),
			validation.RuneLength(0, maxEmailLength).Error("Email too long"),
		),
	)
}

// UpdateInput is a partial change. Omitted fields keep their value.
type UpdateInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.NilOrNotEmpty.Error("Name is required"),
			validation.RuneLength(1, maxNameLength).Error("Name too long"),
		),
		validation.Field(&in.Email,
			validation.NilOrNotEmpty.Error("Email is required"),
			is.EmailFormat.Error("Invalid email format"),
			validation.RuneLength(0, maxEmailLength).Error("Email too long"),
		),
	)
}

// ValidationError lists the offending fields of a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Service applies input rules on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Create validates in and stores a new user. A known email yields ErrConflict
// and leaves the store untouched.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if err := asValidationError(in.Validate()); err != nil {
		return User{}, err
	}

	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("lookup email: %w", err)
	}

	return s.store.Create(ctx, User{
		ID:        s.newID(),
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: s.now(),
	})
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// Update validates in and applies it to the user with the given id.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		in.Email = &email
	}

	if err := asValidationError(in.Validate()); err != nil {
		return User{}, err
	}

	return s.store.Update(ctx, id, Update{Name: in.Name, Email: in.Email})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Reset empties the store.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		fields[field] = fieldErr.Error()
	}
	return &ValidationError{Fields: fields}
}
