package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/domains/auth/be/repo"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const tenantStatusActive = "active"

// Domain sentinel errors. Credential failures never reveal which field was wrong.
var (
	ErrInvalidCredentials = apperr.Unauthenticated("Invalid credentials")
	ErrTenantNotFound     = apperr.Unauthenticated("Tenant not found")
	ErrTenantInactive     = apperr.Forbidden("Tenant inactive or suspended")
	ErrAccountSuspended   = apperr.Forbidden("Account suspended")
	ErrSubdomainRequired  = apperr.ValidationField("tenantSubdomain", "Tenant subdomain required")
	ErrUserNotFound       = apperr.NotFound("User not found")
)

// PasswordComparer checks a password against its stored hash.
type PasswordComparer interface {
	Compare(hash, password string) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(claims platformauth.Claims) (string, time.Time, error)
	TTL() time.Duration
}

// User is the authenticated identity returned to clients.
type User struct {
	ID       uuid.UUID
	TenantID *uuid.UUID
	Email    string
	FullName string
	Role     string
}

// Tenant is the caller's tenant as shown on the profile.
type Tenant struct {
	ID               uuid.UUID
	Name             string
	Subdomain        string
	SubscriptionPlan string
	MaxUsers         int
	MaxProjects      int
}

// LoginInput carries the credentials. TenantSubdomain is empty for super admins.
type LoginInput struct {
	Email           string
	Password        string
	TenantSubdomain string
}

// Session is a successful login.
type Session struct {
	User      User
	Token     string
	ExpiresIn int
}

// Profile is the caller's user record and, for tenant users, its tenant.
type Profile struct {
	User   User
	Tenant *Tenant
}

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, input LoginInput) (Session, error)
	Me(ctx context.Context, actor policy.Actor) (Profile, error)
}

type service struct {
	repo     repo.Repository
	comparer PasswordComparer
	tokens   TokenIssuer
}

// New constructs an auth Service instance.
func New(r repo.Repository, comparer PasswordComparer, tokens TokenIssuer) Service {
	if r == nil {
		panic("auth repository is required")
	}
	if comparer == nil {
		panic("password comparer is required")
	}
	if tokens == nil {
		panic("token issuer is required")
	}
	return &service{repo: r, comparer: comparer, tokens: tokens}
}

func (s *service) Login(ctx context.Context, input LoginInput) (Session, error) {
	fieldErrors := apperr.FieldErrors{}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		fieldErrors.Add("email", "email is required")
	}
	if input.Password == "" {
		fieldErrors.Add("password", "password is required")
	}
	if len(fieldErrors) > 0 {
		return Session{}, apperr.Validation(fieldErrors)
	}

	var (
		user persistence.User
		err  error
	)
	if subdomain := strings.ToLower(strings.TrimSpace(input.TenantSubdomain)); subdomain != "" {
		user, err = s.findTenantUser(ctx, subdomain, email)
	} else {
		user, err = s.findSuperAdmin(ctx, email)
	}
	if err != nil {
		return Session{}, err
	}

	if err := s.comparer.Compare(user.PasswordHash, input.Password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return Session{}, ErrAccountSuspended
	}

	token, _, err := s.tokens.Issue(platformauth.Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     platformauth.Role(user.Role),
	})
	if err != nil {
		return Session{}, apperr.Wrap(apperr.CodeInternal, "issue token", err)
	}

	return Session{
		User:      mapUser(user),
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *service) findTenantUser(ctx context.Context, subdomain, email string) (persistence.User, error) {
	tenant, err := s.repo.GetTenantBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, persistence.ErrTenantNotFound) {
			return persistence.User{}, ErrTenantNotFound
		}
		return persistence.User{}, err
	}
	if tenant.Status != tenantStatusActive {
		return persistence.User{}, ErrTenantInactive
	}

	user, err := s.repo.FindTenantUser(ctx, tenant.ID, email)
	if err != nil {
		if errors.Is(err, persistence.ErrUserNotFound) {
			return persistence.User{}, ErrInvalidCredentials
		}
		return persistence.User{}, err
	}
	return user, nil
}

func (s *service) findSuperAdmin(ctx context.Context, email string) (persistence.User, error) {
	user, err := s.repo.FindSuperAdmin(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, persistence.ErrUserNotFound) {
		return persistence.User{}, err
	}

	exists, err := s.repo.TenantUserEmailExists(ctx, email)
	if err != nil {
		return persistence.User{}, err
	}
	if exists {
		return persistence.User{}, ErrSubdomainRequired
	}
	return persistence.User{}, ErrInvalidCredentials
}

func (s *service) Me(ctx context.Context, actor policy.Actor) (Profile, error) {
	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrUserNotFound) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, err
	}

	profile := Profile{User: mapUser(user)}
	if user.TenantID == nil {
		return profile, nil
	}

	tenant, err := s.repo.GetTenant(ctx, *user.TenantID)
	if err != nil {
		return Profile{}, err
	}
	profile.Tenant = &Tenant{
		ID:               tenant.ID,
		Name:             tenant.Name,
		Subdomain:        tenant.Subdomain,
		SubscriptionPlan: tenant.SubscriptionPlan,
		MaxUsers:         tenant.MaxUsers,
		MaxProjects:      tenant.MaxProjects,
	}
	return profile, nil
}

func mapUser(u persistence.User) User {
	return User{ID: u.ID, TenantID: u.TenantID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}
