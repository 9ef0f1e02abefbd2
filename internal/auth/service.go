package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/storage"
)

// 登录失败计数窗口
const (
	loginAttemptWindow = 15 * time.Minute
	maxLoginAttempts   = 5
)

const (
	msgInvalidCredentials = "Invalid email or password."
	msgTooManyAttempts    = "Too many login attempts. Please try again later."
	msgEmailInUse         = "This email address is already in use."
	msgInvalidEmail       = "Please enter a valid email address."
	msgPasswordTooShort   = "Password must be at least 8 characters long."
	msgPasswordTooLong    = "Password must be at most 72 characters long."
)

// Notifier 向用户的已连接客户端推送事件
type Notifier interface {
	Publish(userID string, event domain.Event)
}

// Service 认证服务：注册、登录、注销与账户安全操作
type Service struct {
	store    storage.Store
	sessions *SessionManager
	limiter  storage.RateLimitRepository
	notifier Notifier
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewService 创建认证服务。limiter 为 nil 时不限制登录失败次数。
func NewService(store storage.Store, sessions *SessionManager, limiter storage.RateLimitRepository, log *zap.Logger, metrics *monitoring.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		sessions: sessions,
		limiter:  limiter,
		metrics:  metrics,
		log:      log,
	}
}

// SetNotifier 设置事件推送器
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Sessions 返回会话管理器
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// LoginResult 登录结果
type LoginResult struct {
	Token   string          `json:"-"`
	User    *domain.User    `json:"user"`
	Session *domain.Session `json:"session"`
}

// Signup 注册新用户并创建默认设置
func (s *Service) Signup(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidateEmail(email) {
		return nil, domain.Validation(msgInvalidEmail)
	}
	if err := validatePassword(password, msgPasswordTooShort); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, domain.Conflict(msgEmailInUse)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, s.storageError("Failed to check email", err)
	}

	taken, err := s.store.CustomUsernameTaken(ctx, email)
	if err != nil {
		return nil, s.storageError("Failed to check email", err)
	}
	if taken {
		return nil, domain.Conflict(msgEmailInUse)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, s.storageError("Failed to hash password", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	settings := domain.DefaultSettings(user.ID, email)
	settings.UpdatedAt = now

	if err := s.store.CreateUser(ctx, user, settings); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, domain.Conflict(msgEmailInUse)
		}
		return nil, s.storageError("Database error during signup.", err)
	}

	s.metrics.RecordUserRegistered()
	s.log.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login 校验凭证并签发会话
func (s *Service) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidateEmail(email) {
		return nil, domain.Validation(msgInvalidEmail)
	}
	if password == "" {
		return nil, domain.Validation(msgPasswordTooShort)
	}

	key := "login:" + email
	if s.limiter != nil {
		attempts, err := s.limiter.IncrementRateLimit(ctx, key, loginAttemptWindow)
		if err != nil {
			s.log.Warn("Login rate limiter unavailable", zap.Error(err))
		} else if attempts > maxLoginAttempts {
			s.metrics.RecordLogin("locked")
			s.metrics.RecordRateLimitBlock("login")
			return nil, domain.NewError(domain.ErrNotAuthenticated, msgTooManyAttempts)
		}
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, s.storageError("Database error during login.", err)
		}
		burnPasswordCheck(password)
		s.metrics.RecordLogin("failure")
		return nil, domain.NewError(domain.ErrNotAuthenticated, msgInvalidCredentials)
	}

	if !CheckPassword(password, user.PasswordHash) {
		s.metrics.RecordLogin("failure")
		return nil, domain.NewError(domain.ErrNotAuthenticated, msgInvalidCredentials)
	}

	token, session, err := s.sessions.Issue(ctx, user.ID, meta)
	if err != nil {
		return nil, s.storageError("Database error during login.", err)
	}

	if s.limiter != nil {
		if err := s.limiter.ResetRateLimit(ctx, key); err != nil {
			s.log.Warn("Failed to reset login attempts", zap.Error(err))
		}
	}

	s.metrics.RecordLogin("success")
	s.log.Info("User logged in", zap.String("user_id", user.ID), zap.String("session_id", session.ID))
	return &LoginResult{Token: token, User: user, Session: session}, nil
}

// Logout 注销当前会话
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return s.storageError("Failed to log out.", err)
	}
	s.metrics.RecordSessionsRevoked(1)
	return nil
}

// LogoutOthers 注销除当前会话外的其他设备
func (s *Service) LogoutOthers(ctx context.Context, userID, currentToken string) (int64, error) {
	removed, err := s.sessions.InvalidateAllExcept(ctx, userID, currentToken)
	if err != nil {
		return 0, s.storageError("A database error occurred.", err)
	}
	s.metrics.RecordSessionsRevoked(removed)
	s.publish(userID, domain.EventSessionsRevoked, map[string]int64{"count": removed})
	s.log.Info("Logged out other sessions", zap.String("user_id", userID), zap.Int64("count", removed))
	return removed, nil
}

// Authenticate 解析令牌，返回会话所属用户
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	session, ok := s.sessions.Resolve(ctx, token)
	if !ok {
		return nil, domain.NewError(domain.ErrNotAuthenticated, "You must be logged in.")
	}
	return session, nil
}

// CurrentUser 获取当前用户
func (s *Service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotAuthenticated, "User not found.")
		}
		return nil, s.storageError("Failed to load user.", err)
	}
	return user, nil
}

// ChangePassword 校验当前密码后修改密码
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error {
	if currentPassword == "" {
		return domain.Validation("Current password is required.")
	}
	if err := validatePassword(newPassword, "New password must be at least 8 characters long."); err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return domain.Validation("New passwords don't match")
	}

	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(currentPassword, user.PasswordHash) {
		return domain.Validation("Incorrect current password.")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return s.storageError("Failed to hash password", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return s.storageError("A database error occurred.", err)
	}

	s.publish(userID, domain.EventSettingsChanged, nil)
	s.log.Info("Password changed", zap.String("user_id", userID))
	return nil
}

// DeleteAccount 校验密码后删除账户及其全部数据
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return domain.Validation("Incorrect password.")
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.NotFound("User not found.")
		}
		return s.storageError("A database error occurred.", err)
	}

	s.publish(userID, domain.EventSessionsRevoked, nil)
	s.log.Info("Account deleted", zap.String("user_id", userID))
	return nil
}

func (s *Service) publish(userID, eventType string, data any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(userID, domain.Event{Type: eventType, Data: data})
}

func (s *Service) storageError(message string, err error) error {
	s.log.Error(message, zap.Error(err))
	s.metrics.RecordError("storage", "auth")
	return domain.StorageFailure(message, err)
}

func validatePassword(password, tooShort string) error {
	if len(password) < domain.MinPasswordLength {
		return domain.Validation(tooShort)
	}
	if len(password) > domain.MaxPasswordLength {
		return domain.Validation(msgPasswordTooLong)
	}
	return nil
}
