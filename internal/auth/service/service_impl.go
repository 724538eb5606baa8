package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/auth/password"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minPasswordLength = 8

type Params struct {
	fx.In

	Log    *zap.Logger
	Repo   domain.Repository
	GenID  *snowflake.Node
	Clock  clock.Clock
	Tokens domain.TokenVerifier `optional:"true"`
}

type Service struct {
	log    *zap.Logger
	repo   domain.Repository
	genID  *snowflake.Node
	clock  clock.Clock
	tokens domain.TokenVerifier
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("auth.service"),
		repo:   p.Repo,
		genID:  p.GenID,
		clock:  p.Clock,
		tokens: p.Tokens,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	role := authorization.NormalizeRole(req.Role)
	if strings.TrimSpace(req.Role) == "" {
		role = authorization.RoleStaff
	}
	if role == "" {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", role))
	return &domain.UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *Service) VerifyCredentials(ctx context.Context, email string, plain string) (*domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil || strings.TrimSpace(plain) == "" {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(plain, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Principal(ctx context.Context, rawToken string) (authorization.Principal, error) {
	if s.tokens == nil {
		return authorization.Principal{}, domain.ErrInvalidToken
	}
	userID, err := s.tokens.Verify(rawToken)
	if err != nil {
		return authorization.Principal{}, err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return authorization.Principal{}, domain.ErrInvalidToken
		}
		return authorization.Principal{}, err
	}

	return authorization.Principal{
		UserID:     user.ID,
		GlobalRole: authorization.NormalizeRole(user.Role),
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", domain.ErrInvalidEmail
	}
	return trimmed, nil
}
