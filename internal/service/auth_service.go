package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// AdminID is the roster id of the built-in administrator.
const AdminID = "admin"

var emailSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret      string
	AccessTokenExpiry      time.Duration
	Issuer                 string
	AdminName              string
	AdminPassword          string
	DefaultTeacherPassword string
	EmailDomain            string
}

// AuthService provides roster login, impersonation and token validation.
type AuthService struct {
	roster    *RosterService
	state     *StateService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(roster *RosterService, state *StateService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{roster: roster, state: state, validator: validate, logger: logger, config: config, now: func() time.Time { return time.Now().UTC() }}
}

// Roster lists the identities offered on the login screen, administrator first.
func (s *AuthService) Roster(ctx context.Context) ([]models.RosterEntry, error) {
	teachers, err := s.roster.Teachers(ctx)
	if err != nil {
		return nil, err
	}
	admin := models.MustRole(models.RoleAdmin)
	entries := make([]models.RosterEntry, 0, len(teachers)+1)
	entries = append(entries, models.RosterEntry{ID: AdminID, Name: s.config.AdminName, Role: admin.Key(), RoleLabel: admin.Label()})
	for _, teacher := range teachers {
		view := teacher.View()
		entries = append(entries, models.RosterEntry{ID: view.ID, Name: view.Name, Role: view.Role, RoleLabel: view.RoleLabel})
	}
	return entries, nil
}

// Login authenticates a roster identity and issues an access token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	name := strings.TrimSpace(req.Name)

	if strings.EqualFold(name, s.config.AdminName) {
		if !constantTimeEqual(req.Password, s.config.AdminPassword) {
			s.logger.Warn("admin login rejected")
			return nil, appErrors.ErrInvalidCredentials
		}
		return s.issue(ctx, s.sessionFor(s.config.AdminName, "", models.RoleAdmin, ""))
	}

	teachers, err := s.roster.Teachers(ctx)
	if err != nil {
		return nil, err
	}
	teacher, ok := findTeacherByName(teachers, name)
	if !ok || !s.passwordMatches(teacher, req.Password) {
		s.logger.Warn("login rejected", zap.String("name", name))
		return nil, appErrors.ErrInvalidCredentials
	}
	return s.issue(ctx, s.sessionFor(teacher.Name, teacher.ID, teacher.Role, ""))
}

// Impersonate issues a token for a teacher on behalf of a session allowed to impersonate.
func (s *AuthService) Impersonate(ctx context.Context, actor models.Session, req dto.ImpersonateRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid impersonation payload")
	}
	if !actor.Can(models.PermImpersonate) || actor.ImpersonatedBy != "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "impersonation not allowed")
	}
	teachers, _, err := loadTeachers(ctx, s.state)
	if err != nil {
		return nil, err
	}
	for _, teacher := range teachers {
		if teacher.ID == req.TeacherID {
			s.logger.Info("impersonation started", zap.String("actor", actor.Name), zap.String("teacher_id", teacher.ID))
			return s.issue(ctx, s.sessionFor(teacher.Name, teacher.ID, teacher.Role, actor.Name))
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
}

// ValidateToken parses and validates an access token returning the session it carries.
func (s *AuthService) ValidateToken(tokenString string) (*models.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	role, err := claims.Role.Role()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token role")
	}
	session := &models.Session{
		Name:           claims.Name,
		TeacherID:      claims.TeacherID,
		Role:           claims.Role,
		RoleLabel:      role.Label(),
		Email:          claims.Email,
		ImpersonatedBy: claims.ImpersonatedBy,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}

// DeriveEmail builds the school address for a display name, e.g. "Budi Santoso" -> budi.santoso@domain.
func DeriveEmail(name, domain string) string {
	local := strings.Trim(emailSeparators.ReplaceAllString(strings.ToLower(name), "."), ".")
	if local == "" {
		local = "user"
	}
	return local + "@" + domain
}

func (s *AuthService) sessionFor(name, teacherID string, key models.RoleKey, impersonatedBy string) models.Session {
	label := string(key)
	if role, err := key.Role(); err == nil {
		label = role.Label()
	}
	return models.Session{
		Name:           name,
		TeacherID:      teacherID,
		Role:           key,
		RoleLabel:      label,
		Email:          DeriveEmail(name, s.config.EmailDomain),
		ImpersonatedBy: impersonatedBy,
		IssuedAt:       s.now(),
	}
}

func (s *AuthService) issue(ctx context.Context, session models.Session) (*models.LoginResponse, error) {
	token, expiresAt, err := s.generateAccessToken(session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	if _, err := s.state.Save(ctx, models.KeyLastSession, session, models.AnyVersion); err != nil {
		s.logger.Warn("failed to persist last session", zap.Error(err))
	}
	profile, err := s.roster.Profile(ctx)
	if err != nil {
		s.logger.Warn("school profile unavailable", zap.Error(err))
	}
	s.logger.Info("session issued", zap.String("name", session.Name), zap.String("role", string(session.Role)))
	return &models.LoginResponse{AccessToken: token, ExpiresAt: expiresAt, Session: session, School: profile}, nil
}

func (s *AuthService) generateAccessToken(session models.Session) (string, time.Time, error) {
	issuedAt := session.IssuedAt
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	subject := session.TeacherID
	if subject == "" {
		subject = AdminID
	}
	claims := &models.JWTClaims{
		Name:           session.Name,
		TeacherID:      session.TeacherID,
		Role:           session.Role,
		Email:          session.Email,
		ImpersonatedBy: session.ImpersonatedBy,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) passwordMatches(teacher models.Teacher, password string) bool {
	if teacher.PasswordHash == "" {
		return s.config.DefaultTeacherPassword != "" && constantTimeEqual(password, s.config.DefaultTeacherPassword)
	}
	return bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(password)) == nil
}

func findTeacherByName(teachers []models.Teacher, name string) (models.Teacher, bool) {
	for _, teacher := range teachers {
		if strings.EqualFold(teacher.Name, name) {
			return teacher, true
		}
	}
	return models.Teacher{}, false
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
