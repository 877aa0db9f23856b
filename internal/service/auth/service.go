package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const MsgBadCredentials = "Incorrect email or password"

// Registrar creates patient accounts.
type Registrar interface {
	Signup(ctx context.Context, req *model.SignupRequest) (*model.Patient, error)
}

type Service struct {
	registrar Registrar
	patients  repository.PatientRepository
	doctors   repository.DoctorRepository
	hasher    security.PasswordHasher
	jwtSvc    auth.JWTService
	logger    zerolog.Logger
}

func NewService(
	registrar Registrar,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	hasher security.PasswordHasher,
	jwtSvc auth.JWTService,
	logger zerolog.Logger,
) *Service {
	return &Service{
		registrar: registrar,
		patients:  patients,
		doctors:   doctors,
		hasher:    hasher,
		jwtSvc:    jwtSvc,
		logger:    logger,
	}
}

func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.Patient, error) {
	return s.registrar.Signup(ctx, req)
}

// Login verifies credentials for a patient or doctor and issues an access token.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperrors.BadRequest("Email and password are required", nil)
	}
	email := model.NormalizeEmail(req.Email)

	var (
		userID uuid.UUID
		hash   string
		user   interface{}
	)
	switch req.UserType {
	case model.UserTypePatient:
		p, err := s.patients.GetByEmail(ctx, email)
		if err != nil {
			return nil, s.lookupError(err)
		}
		userID, hash, user = p.ID, p.PasswordHash, p
	case model.UserTypeDoctor:
		d, err := s.doctors.GetByEmail(ctx, email)
		if err != nil {
			return nil, s.lookupError(err)
		}
		userID, hash, user = d.ID, d.PasswordHash, d
	default:
		return nil, apperrors.BadRequest("user_type must be patient or doctor", nil)
	}

	if err := s.hasher.Compare(hash, req.Password); err != nil {
		s.logger.Warn().Str("email", email).Str("user_type", string(req.UserType)).Msg("failed login attempt")
		return nil, apperrors.Unauthorized(MsgBadCredentials, model.ErrInvalidCredentials)
	}

	token, err := s.jwtSvc.GenerateAccessToken(userID, email, string(req.UserType))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	return &model.LoginResponse{
		UserType:    req.UserType,
		User:        user,
		AccessToken: token,
		ExpiresIn:   int64(s.jwtSvc.Expiry().Seconds()),
	}, nil
}

func (s *Service) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token", err)
	}
	return claims, nil
}

func (s *Service) lookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Unauthorized(MsgBadCredentials, model.ErrInvalidCredentials)
	}
	return apperrors.Internal(err)
}
