package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"github.com/sifan077/spectra/internal/app/validation"
	"go.uber.org/zap"
)

const (
	rootName          = "admin"
	rootPasswordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*().-"
	rootPasswordLen   = 16
)

// UserService implements login and account management.
type UserService interface {
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Logout(sessionKey string)
	ActorFor(ctx context.Context, sessionKey string) (*Actor, error)
	Get(ctx context.Context, actor *Actor, id string) (*model.User, error)
	List(ctx context.Context, actor *Actor) ([]model.User, error)
	Create(ctx context.Context, actor *Actor, in CreateUserInput) (*model.User, error)
	Delete(ctx context.Context, actor *Actor, id string) error
	ResetRoot(ctx context.Context, email string) (string, error)
	EnsureRoot(ctx context.Context, email string) (string, bool, error)
}

// UserDeps groups what the user service needs.
type UserDeps struct {
	Logger   *zap.Logger
	Users    repository.UserRepository
	Sessions SessionStore
	Now      func() time.Time
}

type userService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	sessions SessionStore
	now      func() time.Time
}

// NewUserService returns a UserService backed by deps.
func NewUserService(deps UserDeps) UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &userService{
		logger:   logger,
		users:    deps.Users,
		sessions: deps.Sessions,
		now:      func() time.Time { return now().UTC() },
	}
}

// CreateUserInput captures data required to add an account.
type CreateUserInput struct {
	Name        string `validate:"required,max=64"`
	Email       string `validate:"required,email,max=255"`
	Password    string `validate:"required"`
	Avatar      *string
	Permissions model.Permissions
}

func (s *userService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", apperror.Forbidden("Invalid email or password")
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if !model.PasswordMatches(password, user.Password) {
		return nil, "", apperror.Forbidden("Invalid email or password")
	}

	key, err := s.sessions.Issue(user.ID, false)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, key, nil
}

func (s *userService) Logout(sessionKey string) {
	if sessionKey != "" {
		s.sessions.Remove(sessionKey)
	}
}

// ActorFor resolves a session key. Unknown, expired and dangling sessions
// yield an anonymous actor.
func (s *userService) ActorFor(ctx context.Context, sessionKey string) (*Actor, error) {
	tok, ok := s.sessions.Lookup(sessionKey)
	if !ok {
		return Anonymous(), nil
	}
	if tok.Temporary {
		return &Actor{UserID: tok.UserID, SessionKey: sessionKey, Temporary: true}, nil
	}

	user, err := s.users.GetByID(ctx, tok.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.sessions.Remove(sessionKey)
		return Anonymous(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return &Actor{UserID: user.ID, User: user, SessionKey: sessionKey}, nil
}

func (s *userService) Get(ctx context.Context, actor *Actor, id string) (*model.User, error) {
	if !actor.Authenticated() {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	if actor.UserID != id && !actor.Can(model.PermManage) {
		return nil, apperror.Forbidden("No sufficient permissions")
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, actor *Actor) ([]model.User, error) {
	if !actor.Authenticated() {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	if !actor.Can(model.PermManage) {
		return nil, apperror.Forbidden("Forbidden")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) Create(ctx context.Context, actor *Actor, in CreateUserInput) (*model.User, error) {
	if !actor.Authenticated() {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	if !actor.Can(model.PermManage) {
		return nil, apperror.Forbidden("Forbidden")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user := &model.User{
		ID:         newID(),
		Name:       in.Name,
		Email:      in.Email,
		Password:   model.HashPassword(in.Password),
		Avatar:     in.Avatar,
		CreatedAt:  s.now(),
		Descriptor: in.Permissions & model.AllPermissions(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, apperror.Conflict("User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("by", actor.UserID))
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actor *Actor, id string) error {
	if !actor.Authenticated() {
		return apperror.Unauthorized("Unauthorized")
	}
	if id == model.RootUserID {
		return apperror.Forbidden("The root user cannot be removed")
	}
	if actor.UserID != id && !actor.Can(model.PermManage) {
		return apperror.Forbidden("No sufficient permissions")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.NotFound("User not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", actor.UserID))
	return nil
}

// ResetRoot creates the root account, or replaces its password, and returns
// the new plaintext password.
func (s *userService) ResetRoot(ctx context.Context, email string) (string, error) {
	password, err := RandomPassword()
	if err != nil {
		return "", err
	}
	digest := model.HashPassword(password)

	err = s.users.UpdatePassword(ctx, model.RootUserID, digest)
	if err == nil {
		return password, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return "", fmt.Errorf("reset root password: %w", err)
	}

	root := &model.User{
		ID:         model.RootUserID,
		Name:       rootName,
		Email:      email,
		Password:   digest,
		CreatedAt:  s.now(),
		Descriptor: model.AllPermissions(),
	}
	if err := s.users.Create(ctx, root); err != nil {
		return "", fmt.Errorf("create root user: %w", err)
	}
	return password, nil
}

// EnsureRoot creates the root account when it is missing. created reports
// whether password holds a freshly generated password.
func (s *userService) EnsureRoot(ctx context.Context, email string) (password string, created bool, err error) {
	exists, err := s.users.RootExists(ctx)
	if err != nil {
		return "", false, fmt.Errorf("check root user: %w", err)
	}
	if exists {
		return "", false, nil
	}
	password, err = s.ResetRoot(ctx, email)
	if err != nil {
		return "", false, err
	}
	s.logger.Info("root user created", zap.String("email", email))
	return password, true, nil
}

// RandomPassword returns a random 16 character password.
func RandomPassword() (string, error) {
	limit := big.NewInt(int64(len(rootPasswordChars)))
	b := make([]byte, rootPasswordLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b[i] = rootPasswordChars[n.Int64()]
	}
	return string(b), nil
}
