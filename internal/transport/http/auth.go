package httptransport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"k9aliases/backend/internal/auth"
	"k9aliases/backend/internal/config"
	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/middleware"
)

// AuthHandler 处理注册、登录与会话相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	cookie      config.SessionConfig
	log         *zap.Logger
}

// NewAuthHandler 创建新的认证处理器实例
func NewAuthHandler(authService *auth.Service, cookie config.SessionConfig, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if cookie.CookieName == "" {
		cookie.CookieName = "session_token"
	}
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		log:         log,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	User      *domain.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

// Signup godoc
// @Summary 注册
// @Description 创建账户并直接登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "邮箱与密码"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /v1/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if _, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password); err != nil {
		RespondError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	Created(c, "Account created successfully!", toSessionResponse(result))
}

// Login godoc
// @Summary 登录
// @Description 校验邮箱与密码，签发会话令牌并写入 Cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "邮箱与密码"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 429 {object} Response
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	SuccessWithMsg(c, "Logged in successfully.", toSessionResponse(result))
}

// Logout 注销当前会话并清除 Cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		RespondError(c, err)
		return
	}
	h.clearSessionCookie(c)
	SuccessWithMsg(c, "Logged out.", nil)
}

// Me 返回当前登录用户
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, user)
}

// ChangePassword 修改密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), middleware.UserID(c),
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Password changed successfully!", nil)
}

// DeleteAccount 校验密码后删除账户及全部数据
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	userID := middleware.UserID(c)
	if err := h.authService.DeleteAccount(c.Request.Context(), userID, req.Password); err != nil {
		RespondError(c, err)
		return
	}

	h.log.Info("account deleted", zap.String("user_id", userID))
	h.clearSessionCookie(c)
	SuccessWithMsg(c, "Your account has been deleted.", nil)
}

// ListSessions 当前会话与其他设备
func (h *AuthHandler) ListSessions(c *gin.Context) {
	sessions, err := h.authService.Sessions().Sessions(c.Request.Context(), middleware.UserID(c), middleware.SessionToken(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, sessions)
}

// LogoutOthers 注销其他全部设备
func (h *AuthHandler) LogoutOthers(c *gin.Context) {
	removed, err := h.authService.LogoutOthers(c.Request.Context(), middleware.UserID(c), middleware.SessionToken(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Logged out of all other devices.", gin.H{"count": removed})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, token, int(h.authService.Sessions().TTL().Seconds()), "/", "", h.cookie.CookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, "", -1, "/", "", h.cookie.CookieSecure, true)
}

func clientMeta(c *gin.Context) domain.ClientMeta {
	return domain.ClientMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

func toSessionResponse(result *auth.LoginResult) sessionResponse {
	resp := sessionResponse{Token: result.Token, User: result.User}
	if result.Session != nil {
		resp.ExpiresAt = result.Session.ExpiresAt
	}
	return resp
}
