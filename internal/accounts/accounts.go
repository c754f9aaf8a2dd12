package accounts

import (
	"context"
	"strings"

	"custom-url-shortener/internal/apperrors"
	"custom-url-shortener/internal/db"
	"custom-url-shortener/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Store is the account persistence the service needs.
type Store interface {
	CreateAccount(ctx context.Context, account *db.Account) error
	FindAccountByEmail(ctx context.Context, email string) (*db.Account, error)
}

// TokenIssuer signs session tokens for an owner id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Service registers accounts and exchanges credentials for tokens.
type Service struct {
	store  Store
	tokens TokenIssuer
	cost   int
}

func NewService(store Store, tokens TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register creates an account. Emails are compared case-insensitively.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*db.Account, error) {
	email := normalizeEmail(in.Email)
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" || email == "" || in.Password == "" {
		return nil, apperrors.InvalidInput("All fields are required")
	}

	existing, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.DuplicateKey("User already exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}

	account := &db.Account{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		// Two registrations for the same email raced past the lookup.
		if apperrors.KindOf(err) == apperrors.KindDuplicateKey {
			return nil, apperrors.DuplicateKey("User already exists", err)
		}
		return nil, err
	}

	logger.Info().Str("user_id", account.ID).Msg("Account registered")
	return account, nil
}

// Login verifies the credentials and returns a signed token. Unknown
// emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", apperrors.InvalidInput("Email and password are required")
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", apperrors.Unauthorized("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.Unauthorized("Invalid email or password")
	}

	return s.tokens.Issue(account.ID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
