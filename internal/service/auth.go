package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
	"todo_webapp/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenRevoked       = errors.New("token revoked")
)

// UserStore is the subset of the user repository the auth service needs.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Revoker remembers logged-out token ids until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	Revoked(ctx context.Context, jti string) (bool, error)
}

// Credentials is the register/login payload.
type Credentials struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// AuthResult is returned on successful register or login.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type AuthService struct {
	users   UserStore
	tokens  *TokenService
	revoker Revoker
	audit   *AuditService
}

func NewAuthService(users UserStore, tokens *TokenService, revoker Revoker, audit *AuditService) *AuthService {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &AuthService{users: users, tokens: tokens, revoker: revoker, audit: audit}
}

func (s *AuthService) Register(ctx context.Context, req RequestInfo, cred Credentials) (*AuthResult, error) {
	username := strings.TrimSpace(cred.Username)
	if username == "" || cred.Password == "" {
		return nil, domain.Errorf(domain.KindInvalid, "register", "username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cred.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &domain.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, domain.NewError(domain.KindInvalid, "register", err)
		}
		return nil, err
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.audit.LogWithRequest(ctx, u.ID, domain.AuditActionRegister, domain.AuditCategoryAuth, req, nil)
	logger.WithContext(ctx).Info("user registered", "user_id", u.ID)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, req RequestInfo, cred Credentials) (*AuthResult, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(cred.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domain.NewError(domain.KindAuthRequired, "login", ErrInvalidCredentials)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cred.Password)); err != nil {
		return nil, domain.NewError(domain.KindAuthRequired, "login", ErrInvalidCredentials)
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.audit.LogWithRequest(ctx, u.ID, domain.AuditActionLogin, domain.AuditCategoryAuth, req, nil)
	return res, nil
}

// Logout revokes the presented token. Later requests with it are anonymous.
func (s *AuthService) Logout(ctx context.Context, req RequestInfo, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.NewError(domain.KindAuthRequired, "logout", err)
	}
	if claims.ID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return err
	}
	s.audit.LogWithRequest(ctx, claims.UserID, domain.AuditActionLogout, domain.AuditCategoryAuth, req, nil)
	return nil
}

// Authenticate resolves a bearer token to a session. Any failure yields AuthRequired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Anonymous(), domain.AuthRequired("authenticate")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Anonymous(), domain.NewError(domain.KindAuthRequired, "authenticate", err)
	}
	if claims.ID != "" {
		revoked, err := s.revoker.Revoked(ctx, claims.ID)
		if err != nil {
			// fail open on revocation store outage; signature and expiry were already checked
			logger.WithContext(ctx).Warn("revocation check failed", "error", err)
		} else if revoked {
			return domain.Anonymous(), domain.NewError(domain.KindAuthRequired, "authenticate", ErrTokenRevoked)
		}
	}
	return domain.NewSession(claims.UserID), nil
}

func (s *AuthService) Me(ctx context.Context, sess domain.Session) (*domain.User, error) {
	if !sess.Authenticated() {
		return nil, domain.AuthRequired("me")
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.AuthRequired("me")
	}
	return u, err
}

func (s *AuthService) issue(u *domain.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Generate(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: claims.ExpiresAt, User: u}, nil
}

// LocalAuth authenticates everyone as the single local user.
type LocalAuth struct {
	UserID int64
}

func (a LocalAuth) Authenticate(context.Context, string) (domain.Session, error) {
	return domain.NewSession(a.UserID), nil
}

// RedisRevoker stores revoked ids under <prefix><jti> with a TTL.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

func NewRedisRevoker(client *redis.Client, prefix string) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: prefix}
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+jti, 1, ttl).Err()
}

func (r *RedisRevoker) Revoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevoker is the in-process Revoker used when redis is not configured.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.revoked {
		if now.After(exp) {
			delete(r.revoked, id)
		}
	}
	r.revoked[jti] = until
	return nil
}

func (r *MemoryRevoker) Revoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[jti]
	return ok && r.now().Before(exp), nil
}
