package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/yalmoalm/JaMoveo/internal/db"
)

// SignupParams are the fields required to register a user.
type SignupParams struct {
	Username   string
	Password   string
	Instrument string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Identity Identity
	Token    string
}

// UserService registers and authenticates users.
type UserService struct {
	queries *db.Queries
	auth    *AuthService
}

func NewUserService(queries *db.Queries, auth *AuthService) *UserService {
	return &UserService{queries: queries, auth: auth}
}

// Signup registers a player.
func (s *UserService) Signup(ctx context.Context, p SignupParams) (db.UserWithRole, error) {
	return s.register(ctx, p, RolePlayer)
}

// CreateAdmin registers an admin.
func (s *UserService) CreateAdmin(ctx context.Context, p SignupParams) (db.UserWithRole, error) {
	return s.register(ctx, p, RoleAdmin)
}

func (s *UserService) register(ctx context.Context, p SignupParams, role Role) (db.UserWithRole, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Instrument = strings.TrimSpace(p.Instrument)
	if p.Username == "" || p.Password == "" || p.Instrument == "" {
		return db.UserWithRole{}, ErrValidation("All fields are required: username, password, and instrument")
	}

	_, err := s.queries.GetUserByUsername(ctx, p.Username)
	switch {
	case err == nil:
		return db.UserWithRole{}, ErrConflict("Username already exists")
	case !errors.Is(err, sql.ErrNoRows):
		return db.UserWithRole{}, fmt.Errorf("lookup user %q: %w", p.Username, err)
	}

	r, err := s.queries.GetRoleByName(ctx, string(role))
	if err != nil {
		return db.UserWithRole{}, fmt.Errorf("role %q not found in database: %w", role, err)
	}

	// The password is stored as supplied; hashing is out of scope.
	user, err := s.queries.CreateUser(ctx, db.CreateUserParams{
		Username:   p.Username,
		Password:   p.Password,
		Instrument: p.Instrument,
		RoleID:     r.ID,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return db.UserWithRole{}, ErrConflict("Username already exists")
		}
		return db.UserWithRole{}, fmt.Errorf("create user: %w", err)
	}

	return db.UserWithRole{
		ID:         user.ID,
		Username:   user.Username,
		Password:   user.Password,
		Instrument: user.Instrument,
		RoleID:     user.RoleID,
		RoleName:   r.Name,
	}, nil
}

// Login checks the credentials and returns the caller identity with a signed token.
func (s *UserService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrValidation("Username and password are required")
	}

	user, err := s.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginResult{}, ErrUnauthenticated("Invalid username or password")
		}
		return LoginResult{}, fmt.Errorf("lookup user %q: %w", username, err)
	}

	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return LoginResult{}, ErrUnauthenticated("Invalid username or password")
	}

	identity := Identity{ID: user.ID, Role: Role(user.RoleName)}
	token, err := s.auth.GenerateToken(identity)
	if err != nil {
		return LoginResult{}, fmt.Errorf("generate token: %w", err)
	}

	return LoginResult{Identity: identity, Token: token}, nil
}

// List returns every user with its role name.
func (s *UserService) List(ctx context.Context) ([]db.UserWithRole, error) {
	users, err := s.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
