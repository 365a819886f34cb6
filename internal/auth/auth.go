// Package auth is the identity provider consumed by the staff console. The
// only contract the rest of the system reads is "is this caller an
// authenticated admin": email+password sign-in, a bearer token, and the
// current principal derived from it.
package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials covers both unknown emails and wrong passwords,
	// surfaced to the login view as one inline alert.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrUnavailable is returned when no account backend is configured.
	ErrUnavailable = errors.New("auth: identity backend unavailable")
	// ErrInvalidToken covers expired, malformed and forged tokens.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)

const (
	tokenIssuer = "brewhaus-support"
	tokenTTL    = 72 * time.Hour
)

// Principal is the authenticated admin identity attached to console actions.
type Principal struct {
	ID    string
	Email string
}

// Service signs admins in against the accounts table and verifies the
// resulting bearer tokens.
type Service struct {
	DB     *gorm.DB
	secret []byte
}

// NewService wires the identity service. db may be nil in degraded mode, in
// which case sign-in fails with ErrUnavailable.
func NewService(db *gorm.DB, secret []byte) *Service {
	return &Service{DB: db, secret: secret}
}

// SignIn checks the email/password pair and returns a signed bearer token.
func (s *Service) SignIn(email, password string) (string, error) {
	if s.DB == nil {
		return "", ErrUnavailable
	}

	var admin AdminUser
	err := s.DB.Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("auth: lookup failed: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return s.generateToken(admin)
}

// Verify parses a bearer token and returns the principal it names. Absent or
// invalid tokens route the console to its login view.
func (s *Service) Verify(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	id, _ := claims["admin_id"].(string)
	email, _ := claims["email"].(string)
	if id == "" {
		return nil, ErrInvalidToken
	}
	return &Principal{ID: id, Email: email}, nil
}

// CreateAdmin hashes the password and stores a new staff account. Used by the
// ops CLI; there is no self-service signup.
func (s *Service) CreateAdmin(email, password string, roles []string) (*AdminUser, error) {
	if s.DB == nil {
		return nil, ErrUnavailable
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	admin := AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Roles:        roles,
	}
	if err := s.DB.Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("auth: create admin: %w", err)
	}
	return &admin, nil
}

func (s *Service) generateToken(admin AdminUser) (string, error) {
	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"email":    admin.Email,
		"exp":      time.Now().Add(tokenTTL).Unix(),
		"iss":      tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
