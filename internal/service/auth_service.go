package service

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrMemberAlreadyExists  = errors.New("member with this email or name already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidToken         = errors.New("invalid or expired token")
)

const tokenIssuer = "exercise-tracker"

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.Member, error)
	Login(ctx context.Context, email, password string) (token string, member *domain.Member, err error)
	// ParseToken validates a bearer token and returns the member it was issued to.
	ParseToken(token string) (domain.MemberContext, error)
}

// authService implements the AuthService interface.
type authService struct {
	memberRepo    repository.MemberRepository
	jwtSecret     string
	jwtExpiration time.Duration
	clock         quartz.Clock
}

// NewAuthService creates a new instance of authService.
func NewAuthService(memberRepo repository.MemberRepository, jwtSecret string, jwtExpiration time.Duration, clock quartz.Clock) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		memberRepo:    memberRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		clock:         clock,
	}
}

// Register handles new member registration. Display names are unique because a
// member finds their own rank by name.
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.Member, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email, and password cannot be empty")
	}

	_, err := s.memberRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrMemberAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	member := &domain.Member{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	memberID, err := s.memberRepo.Create(ctx, member)
	if err != nil {
		// The unique indexes catch a concurrent registration or a taken name
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrMemberAlreadyExists
		}
		return nil, err
	}
	member.ID = memberID

	member.PasswordHash = ""
	return member, nil
}

// Login handles member authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, member *domain.Member, err error) {
	if email == "" || password == "" {
		err = errors.New("email and password cannot be empty")
		return
	}

	member, err = s.memberRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrAuthenticationFailed
		}
		member = nil
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password))
	if err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	token, err = s.generateJWT(member)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	member.PasswordHash = ""
	return token, member, nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	MemberID string `json:"uid"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given member.
func (s *authService) generateJWT(member *domain.Member) (string, error) {
	now := s.clock.Now()
	claims := &jwtClaims{
		MemberID: member.ID.Hex(),
		Name:     member.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ParseToken validates signature, algorithm and expiry against the service clock.
func (s *authService) ParseToken(tokenString string) (domain.MemberContext, error) {
	claims := &jwtClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}, SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return domain.MemberContext{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.VerifyExpiresAt(s.clock.Now(), true) || !claims.VerifyIssuer(tokenIssuer, true) {
		return domain.MemberContext{}, ErrInvalidToken
	}

	memberID, err := primitive.ObjectIDFromHex(claims.MemberID)
	if err != nil || claims.Name == "" {
		return domain.MemberContext{}, ErrInvalidToken
	}
	return domain.MemberContext{ID: memberID, Name: claims.Name}, nil
}
