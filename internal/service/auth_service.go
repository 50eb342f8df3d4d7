package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type magicLinkRepository interface {
	Create(ctx context.Context, token *models.MagicLinkToken) error
	FindActive(ctx context.Context, email string, now time.Time) ([]models.MagicLinkToken, error)
	Consume(ctx context.Context, id string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret   string
	AccessTokenExpiry   time.Duration
	Issuer              string
	MagicLinkTTL        time.Duration
	AllowedEmailDomains []string
	BaseURL             string
}

// AuthService provides sign-in flows and issues access tokens.
type AuthService struct {
	users     authUserRepository
	links     magicLinkRepository
	google    GoogleVerifier
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, links magicLinkRepository, google GoogleVerifier, notify notifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MagicLinkTTL <= 0 {
		config.MagicLinkTTL = 15 * time.Minute
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	config.AllowedEmailDomains = domainSuffixes(config.AllowedEmailDomains)
	return &AuthService{
		users:     users,
		links:     links,
		google:    google,
		notifier:  notify,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AllowSignIn reports whether email belongs to an institutional domain.
// An empty allow-list admits everyone.
func (s *AuthService) AllowSignIn(email string) bool {
	if len(s.config.AllowedEmailDomains) == 0 {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, suffix := range s.config.AllowedEmailDomains {
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return false
}

// domainSuffixes lower-cases the allow-list and anchors every entry at "@"
// so "unifil.br" cannot match "x@notunifil.br".
func domainSuffixes(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if !strings.HasPrefix(d, "@") {
			d = "@" + d
		}
		out = append(out, d)
	}
	return out
}

// RequestMagicLink emails a one-time sign-in link valid for the configured
// TTL. The stored value is a bcrypt hash of the token.
func (s *AuthService) RequestMagicLink(ctx context.Context, req models.MagicLinkRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid magic link payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.AllowSignIn(email) {
		return appErrors.Clone(appErrors.ErrForbidden, "email domain is not allowed")
	}

	token, err := randomToken()
	if err != nil {
		return appErrors.Internal(err, "failed to create sign-in token")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash sign-in token")
	}
	now := s.now()
	if err := s.links.Create(ctx, &models.MagicLinkToken{
		Email:     email,
		TokenHash: string(hash),
		ExpiresAt: now.Add(s.config.MagicLinkTTL),
		CreatedAt: now,
	}); err != nil {
		return appErrors.Internal(err, "failed to store sign-in token")
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, models.Notification{
			Template: models.TemplateMagicLink,
			To:       email,
			Params: map[string]string{
				"url": s.magicLinkURL(req.CallbackURL, email, token),
				"ttl": fmt.Sprintf("%d minutos", int(s.config.MagicLinkTTL.Minutes())),
			},
		})
	}
	s.logger.Info("magic link requested", zap.String("email", email))
	return nil
}

// VerifyMagicLink consumes a valid token and signs the user in, creating
// the account on first use.
func (s *AuthService) VerifyMagicLink(ctx context.Context, req models.VerifyMagicLinkRequest, meta models.RequestMeta) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid magic link payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	tokens, err := s.links.FindActive(ctx, email, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load sign-in token")
	}
	var matched *models.MagicLinkToken
	for i := range tokens {
		if bcrypt.CompareHashAndPassword([]byte(tokens[i].TokenHash), []byte(req.Token)) == nil {
			matched = &tokens[i]
			break
		}
	}
	if matched == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired sign-in link")
	}
	if err := s.links.Consume(ctx, matched.ID); err != nil {
		return nil, appErrors.Internal(err, "failed to consume sign-in token")
	}

	user, err := s.findOrCreateUser(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if user.EmailVerified == nil {
		verifiedAt := s.now()
		if err := s.users.MarkEmailVerified(ctx, user.ID, verifiedAt); err != nil {
			s.logger.Warn("failed to mark email verified", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			user.EmailVerified = &verifiedAt
		}
	}
	return s.issue(ctx, user, "magic_link", meta)
}

// SignInWithGoogle verifies a Google ID token and signs the user in.
func (s *AuthService) SignInWithGoogle(ctx context.Context, req models.GoogleSignInRequest, meta models.RequestMeta) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid google sign-in payload")
	}
	if s.google == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "google sign-in is disabled")
	}
	identity, err := s.google.Verify(req.IDToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid google id token")
	}
	if !s.AllowSignIn(identity.Email) {
		s.logger.Info("google sign-in denied", zap.String("email", identity.Email))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "email domain is not allowed")
	}

	user, err := s.findOrCreateUser(ctx, strings.ToLower(identity.Email), identity.Name)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, "google", meta)
}

// Me returns the signed-in user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return user, nil
}

// ValidateToken parses and validates an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, email, name string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = &models.User{Name: name, Email: email, Roles: []string{models.DefaultNewRole}}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create user")
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", email))
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, method string, meta models.RequestMeta) (*models.AuthResponse, error) {
	issuedAt := s.now()
	token, err := s.generateAccessToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(fmt.Sprintf(`{"method":%q}`, method)),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	return &models.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        *user,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Roles:  user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func (s *AuthService) magicLinkURL(callback, email, token string) string {
	base := strings.TrimSpace(callback)
	if base == "" {
		base = s.config.BaseURL + "/auth/verify"
	}
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
