// Package accounts manages the accounts statements are imported into.
package accounts

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

// Repository is the account persistence the service needs.
type Repository interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

// CreateRequest carries the fields of a new account.
type CreateRequest struct {
	Name                 string
	FinancialInstitution string
	Type                 string
	Currency             string
}

// Service exposes account operations.
type Service struct {
	repo Repository
}

// NewService creates a Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates req and stores a new account with an empty balance
// history. Invalid input fails with a *domain.ValidationError.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Account, error) {
	acct := &domain.Account{
		Name:                 req.Name,
		FinancialInstitution: req.FinancialInstitution,
		Type:                 domain.AccountType(req.Type),
		Currency:             req.Currency,
	}
	if err := acct.Validate(); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log := logger.WithComponent(ctx, "accounts")
	log.Info().
		Str("account_id", acct.ID).
		Str("type", string(acct.Type)).
		Msg("account created")
	return acct, nil
}

// Get returns the account, or domain.ErrAccountNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Account, error) {
	acct, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return acct, nil
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]*domain.Account, error) {
	accts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return accts, nil
}

// Delete removes the account. Its transactions are kept and resolve to a
// nil account afterwards.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	log := logger.WithComponent(ctx, "accounts")
	log.Info().Str("account_id", id).Msg("account deleted")
	return nil
}
