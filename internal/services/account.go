package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jjudge-oj/accounts/internal/clock"
	"github.com/jjudge-oj/accounts/internal/events"
	"github.com/jjudge-oj/accounts/internal/store"
	"github.com/jjudge-oj/accounts/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const accountListCacheKey = "accounts:list"

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	List(ctx context.Context) ([]types.Account, error)
	GetByUsername(ctx context.Context, username string) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	RecordLogin(ctx context.Context, username string, at time.Time, verify func(types.Account) error) (types.Account, error)
}

// EventPublisher receives account lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ListCache holds the rendered account list. Store must discard the value
// when Invalidate ran after the generation was read.
type ListCache interface {
	Get(ctx context.Context, key string) ([]types.AccountView, bool)
	Generation(ctx context.Context, key string) (int64, bool)
	Store(ctx context.Context, key string, gen int64, value []types.AccountView)
	Invalidate(ctx context.Context, key string)
}

// AccountServiceOptions carries the optional collaborators of AccountService.
type AccountServiceOptions struct {
	Clock    clock.Clock
	Events   EventPublisher
	Cache    ListCache
	Logger   *zap.Logger
	HashCost int
}

// AccountService implements account creation, authentication and listing.
type AccountService struct {
	repo     AccountRepository
	clock    clock.Clock
	events   EventPublisher
	cache    ListCache
	logger   *zap.Logger
	hashCost int
	validate *validator.Validate
	compare  func(hash, password []byte) error

	decoyOnce sync.Once
	decoyHash []byte
}

func NewAccountService(repo AccountRepository, opts AccountServiceOptions) *AccountService {
	s := &AccountService{
		repo:     repo,
		clock:    opts.Clock,
		events:   opts.Events,
		cache:    opts.Cache,
		logger:   opts.Logger,
		hashCost: opts.HashCost,
		validate: validator.New(),
		compare:  bcrypt.CompareHashAndPassword,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	return s
}

// CreateAccountInput is the sign-up payload. Username and Password are nil
// when absent from the request.
type CreateAccountInput struct {
	Username *string
	Password *string
	Email    *string
}

// Presence is all that is checked: an empty string is a valid value.
type createAccountFields struct {
	Username *string `validate:"required"`
	Password *string `validate:"required"`
}

// AuthenticateInput is the sign-in payload.
type AuthenticateInput struct {
	Username *string
	Password *string
}

type authenticateFields struct {
	Username *string `validate:"required"`
	Password *string `validate:"required"`
}

// CreateAccount registers a new account. The username check precedes the
// email check; the database unique constraints decide races between
// concurrent sign-ups.
func (s *AccountService) CreateAccount(ctx context.Context, in CreateAccountInput) (types.AccountView, error) {
	if err := s.validateStruct(createAccountFields{Username: in.Username, Password: in.Password}); err != nil {
		return types.AccountView{}, err
	}
	username := strings.TrimSpace(*in.Username)
	email := strings.TrimSpace(deref(in.Email))

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.AccountView{}, &ConflictError{Field: "username"}
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.AccountView{}, s.internal("check username", err)
	}

	if email != "" {
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return types.AccountView{}, &ConflictError{Field: "email"}
		} else if !errors.Is(err, store.ErrNotFound) {
			return types.AccountView{}, s.internal("check email", err)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.AccountView{}, &ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
		}
		return types.AccountView{}, s.internal("hash password", err)
	}

	account, err := s.repo.Create(ctx, types.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    s.now(),
	})
	if err != nil {
		var unique *store.UniqueViolationError
		if errors.As(err, &unique) {
			return types.AccountView{}, &ConflictError{Field: unique.Field}
		}
		return types.AccountView{}, s.internal("create account", err)
	}

	s.logger.Info("account created", zap.Int64("account_id", account.ID), zap.String("username", account.Username))
	s.afterWrite(ctx, events.TypeAccountCreated, account)
	return account.View(), nil
}

// Authenticate verifies the password and records the login. Unknown users
// and wrong passwords both yield ErrInvalidCredentials, and both pay for one
// bcrypt comparison.
func (s *AccountService) Authenticate(ctx context.Context, in AuthenticateInput) (types.AccountView, error) {
	if err := s.validateStruct(authenticateFields{Username: in.Username, Password: in.Password}); err != nil {
		return types.AccountView{}, err
	}
	username := strings.TrimSpace(*in.Username)
	password := []byte(*in.Password)

	account, err := s.repo.RecordLogin(ctx, username, s.now(), func(account types.Account) error {
		if err := s.compare([]byte(account.PasswordHash), password); err != nil {
			return ErrInvalidCredentials
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.compare(s.unknownUserHash(), password)
			return types.AccountView{}, ErrInvalidCredentials
		}
		if errors.Is(err, ErrInvalidCredentials) {
			return types.AccountView{}, ErrInvalidCredentials
		}
		return types.AccountView{}, s.internal("record login", err)
	}

	s.logger.Info("account authenticated",
		zap.Int64("account_id", account.ID),
		zap.Int64("login_count", account.LoginCount),
	)
	s.afterWrite(ctx, events.TypeAccountAuthenticated, account)
	return account.View(), nil
}

// ListAccounts returns the public view of every account in insertion order.
func (s *AccountService) ListAccounts(ctx context.Context) ([]types.AccountView, error) {
	var gen int64
	cacheable := false
	if s.cache != nil {
		if views, ok := s.cache.Get(ctx, accountListCacheKey); ok {
			return views, nil
		}
		gen, cacheable = s.cache.Generation(ctx, accountListCacheKey)
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.internal("list accounts", err)
	}

	views := make([]types.AccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, account.View())
	}

	if cacheable {
		s.cache.Store(ctx, accountListCacheKey, gen, views)
	}
	return views, nil
}

func (s *AccountService) afterWrite(ctx context.Context, eventType string, account types.Account) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, accountListCacheKey)
	}
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, events.Event{
		Type:       eventType,
		Username:   account.Username,
		LoginCount: account.LoginCount,
		OccurredAt: s.now(),
	})
	if err != nil {
		s.logger.Warn("publish account event failed", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *AccountService) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Field: strings.ToLower(fieldErrs[0].Field())}
	}
	return &ValidationError{Field: "request", Reason: err.Error()}
}

// unknownUserHash is compared against when the username does not exist.
func (s *AccountService) unknownUserHash() []byte {
	s.decoyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("unknown-user"), s.hashCost)
		if err != nil {
			s.logger.Error("generate decoy hash failed", zap.Error(err))
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}

func (s *AccountService) internal(op string, err error) error {
	s.logger.Error("account service failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

// now is UTC at microsecond precision, the finest both sqlite and postgres keep.
func (s *AccountService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
