package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/domain"
	"github.com/followup-todo/todo-sync-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	codeLength = 6
	codeTTL    = 10 * time.Minute
	// SessionDuration is the 30-day freshness window. The token expiry is
	// authoritative; the client-held timestamp is advisory only.
	SessionDuration = 30 * 24 * time.Hour
)

var (
	ErrEmailRequired = errors.New("email address is required")
	ErrCodeRequired  = errors.New("login code is required")
	// ErrInvalidCode is surfaced verbatim to the auth form; the state
	// machine stays in awaiting-code.
	ErrInvalidCode = errors.New("invalid or expired login code")
)

// CodeSender delivers a dispatched login code to the user. Production wires
// a mail provider here; development logs the code.
type CodeSender interface {
	SendLoginCode(ctx context.Context, email, code string) error
}

// LogCodeSender writes codes to the service log instead of sending mail.
type LogCodeSender struct{}

func (LogCodeSender) SendLoginCode(_ context.Context, email, code string) error {
	log.Printf("Login code for %s: %s", email, code)
	return nil
}

// AuthResult is returned on successful code verification. SessionStartedAt
// is the unix-millisecond marker the client persists for its freshness
// heuristic.
type AuthResult struct {
	Token            string      `json:"token"`
	User             domain.User `json:"user"`
	SessionStartedAt int64       `json:"sessionStartedAt"`
}

// AuthService drives the passwordless login flow: dispatch a one-time code,
// verify it, and mint a bearer token for the session.
type AuthService interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*AuthResult, error)
	// ParseToken validates a bearer token and returns the user id and
	// email it was issued for.
	ParseToken(token string) (userID, email string, err error)
}

type authService struct {
	users  repository.UserRepository
	codes  repository.LoginCodeRepository
	sender CodeSender
	appID  string
	secret []byte
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, codes repository.LoginCodeRepository, sender CodeSender, appID, jwtSecret string) AuthService {
	return &authService{
		users:  users,
		codes:  codes,
		sender: sender,
		appID:  appID,
		secret: []byte(jwtSecret),
		now:    time.Now,
	}
}

func (s *authService) SendCode(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate login code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash login code: %w", err)
	}

	record := &domain.LoginCode{
		ID:        uuid.NewString(),
		Email:     email,
		CodeHash:  string(hash),
		CreatedAt: s.now(),
		ExpiresAt: s.now().Add(codeTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return fmt.Errorf("store login code: %w", err)
	}

	return s.sender.SendLoginCode(ctx, email, code)
}

func (s *authService) VerifyCode(ctx context.Context, email, code string) (*AuthResult, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if code == "" {
		return nil, ErrCodeRequired
	}

	record, err := s.codes.FindActiveByEmail(ctx, email, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("look up login code: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		return nil, ErrInvalidCode
	}

	if err := s.codes.MarkConsumed(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("consume login code: %w", err)
	}

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}

	startedAt := s.now()
	token, err := s.signToken(user, startedAt)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &AuthResult{
		Token:            token,
		User:             *user,
		SessionStartedAt: startedAt.UnixMilli(),
	}, nil
}

func (s *authService) ParseToken(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.appID))
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", "", errors.New("token carries no user id")
	}
	email, _ := claims["email"].(string)
	return userID, email, nil
}

func (s *authService) findOrCreateUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	user = &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) signToken(user *domain.User, issuedAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"iss":     s.appID,
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(SessionDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// SessionFresh reports whether a client-held sign-in marker is still inside
// the freshness window. Purely a UX hint: it never overrides token validity.
func SessionFresh(startedAtMillis int64, now time.Time) bool {
	if startedAtMillis <= 0 {
		return false
	}
	started := time.UnixMilli(startedAtMillis)
	return now.Sub(started) < SessionDuration
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
