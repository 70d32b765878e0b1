package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sanjeevni/portal/internal/platform/metrics"
)

// User-facing validation and credential errors. The messages are shown to
// the patient verbatim.
var (
	ErrNameRequired        = errors.New("Full name is required")
	ErrEmailRequired       = errors.New("Email is required")
	ErrPasswordTooShort    = errors.New("Password must be at least 8 characters long")
	ErrPasswordNoUpper     = errors.New("Password must contain at least one uppercase letter")
	ErrPasswordNoLower     = errors.New("Password must contain at least one lowercase letter")
	ErrPasswordNoNumber    = errors.New("Password must contain at least one number")
	ErrPasswordNoSpecial   = errors.New("Password must contain at least one special character")
	ErrPasswordMismatch    = errors.New("Passwords do not match")
	ErrAccountExists       = errors.New("Account with this email already exists. Please login instead.")
	ErrCredentialsRequired = errors.New("Please enter both email and password")
	ErrInvalidCredentials  = errors.New("Invalid email or password")
	ErrNotLoggedIn         = errors.New("Not logged in")
	ErrInvalidPhone        = errors.New("Invalid phone number")
	ErrOTPExpired          = errors.New("OTP expired. Please request a new one.")
	ErrInvalidOTP          = errors.New("Invalid OTP")
)

const minPasswordLength = 8

// DefaultOTPTTL is how long a simulated one-time code stays valid.
const DefaultOTPTTL = 5 * time.Minute

var (
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// ValidatePassword returns the first complexity rule password breaks.
func ValidatePassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return ErrPasswordTooShort
	case !upperPattern.MatchString(password):
		return ErrPasswordNoUpper
	case !lowerPattern.MatchString(password):
		return ErrPasswordNoLower
	case !digitPattern.MatchString(password):
		return ErrPasswordNoNumber
	case !specialPattern.MatchString(password):
		return ErrPasswordNoSpecial
	}
	return nil
}

type Service struct {
	repo    Repository
	otpTTL  time.Duration
	now     func() time.Time
	newCode func() (string, error)
	metrics *metrics.Metrics
}

func NewService(repo Repository, otpTTL time.Duration, m *metrics.Metrics) *Service {
	if otpTTL <= 0 {
		otpTTL = DefaultOTPTTL
	}
	return &Service{
		repo:    repo,
		otpTTL:  otpTTL,
		now:     time.Now,
		newCode: randomCode,
		metrics: m,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Signup creates an account and logs it in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	session, err := s.signup(ctx, req)
	s.metrics.AuthAttempt("signup", err == nil)
	return session, err
}

func (s *Service) signup(ctx context.Context, req SignupRequest) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return nil, ErrPasswordMismatch
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if u.Email == email {
			return nil, ErrAccountExists
		}
	}

	user := User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Password:  req.Password,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.AddUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return s.startSession(ctx, user)
}

// Login matches email and password exactly against the stored accounts. A
// failed attempt leaves the current session untouched.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	session, err := s.login(ctx, req)
	s.metrics.AuthAttempt("login", err == nil)
	return session, err
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*Session, error) {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		return nil, ErrCredentialsRequired
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if u.Email == req.Email && u.Password == req.Password {
			return s.startSession(ctx, u)
		}
	}
	return nil, ErrInvalidCredentials
}

func (s *Service) startSession(ctx context.Context, u User) (*Session, error) {
	session := u.Session()
	if err := s.repo.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &session, nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.repo.ClearSession(ctx)
}

func (s *Service) Current(ctx context.Context) (*Session, error) {
	session, ok, err := s.repo.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return &session, nil
}

// CurrentUserID reports the logged-in user of the request's client.
func (s *Service) CurrentUserID(ctx context.Context) (string, bool, error) {
	session, ok, err := s.repo.CurrentSession(ctx)
	return session.ID, ok, err
}

func normalizePhone(phone string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if !phonePattern.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// RequestOTP stores a fresh one-time code for phone and returns it. Delivery
// is simulated: the caller shows the code to the patient.
func (s *Service) RequestOTP(ctx context.Context, phone string) (string, error) {
	p, err := normalizePhone(phone)
	if err != nil {
		return "", err
	}
	code, err := s.newCode()
	if err != nil {
		return "", err
	}
	if err := s.repo.SetOTP(ctx, p, otpIssue{Code: code, IssuedAt: s.now()}); err != nil {
		return "", fmt.Errorf("save otp: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("phone", p).Msg("otp issued")
	return code, nil
}

// VerifyOTP checks the code for phone and logs the phone's user in, creating
// the account on first use.
func (s *Service) VerifyOTP(ctx context.Context, req OTPVerifyRequest) (*Session, error) {
	session, err := s.verifyOTP(ctx, req)
	s.metrics.AuthAttempt("otp", err == nil)
	return session, err
}

func (s *Service) verifyOTP(ctx context.Context, req OTPVerifyRequest) (*Session, error) {
	p, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	issue, err := s.repo.GetOTP(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}
	if issue == nil {
		return nil, ErrInvalidOTP
	}
	if s.now().Sub(issue.IssuedAt) > s.otpTTL {
		if err := s.repo.DeleteOTP(ctx, p); err != nil {
			return nil, fmt.Errorf("delete otp: %w", err)
		}
		return nil, ErrOTPExpired
	}
	if strings.TrimSpace(req.Code) != issue.Code {
		return nil, ErrInvalidOTP
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var user *User
	for i := range users {
		if users[i].Phone == p {
			user = &users[i]
			break
		}
	}
	if user == nil {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		user = &User{
			ID:        uuid.New().String(),
			Name:      name,
			Phone:     p,
			CreatedAt: s.now().UTC().Format(time.RFC3339),
		}
		if err := s.repo.AddUser(ctx, *user); err != nil {
			return nil, fmt.Errorf("save user: %w", err)
		}
	}

	if err := s.repo.DeleteOTP(ctx, p); err != nil {
		return nil, fmt.Errorf("delete otp: %w", err)
	}
	return s.startSession(ctx, *user)
}
