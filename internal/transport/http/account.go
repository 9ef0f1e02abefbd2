package httptransport

import (
	"github.com/gin-gonic/gin"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/middleware"
	"k9aliases/backend/internal/service"
)

type profileRequest struct {
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type themeRequest struct {
	Theme domain.Theme `json:"theme"`
}

type preferencesRequest struct {
	DefaultAliasCount  int `json:"defaultAliasCount"`
	DefaultAliasLength int `json:"defaultAliasLength"`
}

type notificationsRequest struct {
	NotifyOnAliasCreation bool `json:"notifyOnAliasCreation"`
	NotifyOnSecurityEvent bool `json:"notifyOnSecurityEvent"`
	SendWeeklySummary     bool `json:"sendWeeklySummary"`
}

type aliasRulesRequest struct {
	Separator string           `json:"separator"`
	Case      domain.AliasCase `json:"case"`
}

// settingsUpdate 设置类接口的通用签名：返回提示消息
type settingsUpdate func(c *gin.Context) (string, error)

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.settings.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, profile)
}

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.settings.Settings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, settings)
}

func (h *Handler) updateProfile(c *gin.Context) (string, error) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", domain.Validation(MsgInvalidRequest)
	}
	return h.settings.UpdateProfile(c.Request.Context(), middleware.UserID(c), service.ProfileInput{
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	})
}

func (h *Handler) updateTheme(c *gin.Context) (string, error) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", domain.Validation(MsgInvalidRequest)
	}
	return h.settings.UpdateTheme(c.Request.Context(), middleware.UserID(c), req.Theme)
}

func (h *Handler) updatePreferences(c *gin.Context) (string, error) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", domain.Validation(MsgInvalidRequest)
	}
	return h.settings.UpdatePreferences(c.Request.Context(), middleware.UserID(c), service.PreferencesInput{
		DefaultAliasCount:  req.DefaultAliasCount,
		DefaultAliasLength: req.DefaultAliasLength,
	})
}

func (h *Handler) updateNotifications(c *gin.Context) (string, error) {
	var req notificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", domain.Validation(MsgInvalidRequest)
	}
	return h.settings.UpdateNotifications(c.Request.Context(), middleware.UserID(c), service.NotificationInput(req))
}

func (h *Handler) updateAliasRules(c *gin.Context) (string, error) {
	var req aliasRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", domain.Validation(MsgInvalidRequest)
	}
	return h.settings.UpdateAliasRules(c.Request.Context(), middleware.UserID(c), service.AliasRulesInput{
		Separator: req.Separator,
		Case:      req.Case,
	})
}

// respondUpdate 把设置类更新包装成处理函数
func respondUpdate(fn settingsUpdate) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := fn(c)
		if err != nil {
			RespondError(c, err)
			return
		}
		SuccessWithMsg(c, msg, nil)
	}
}

// ========== Dashboard ==========

func (h *Handler) listApplications(c *gin.Context) {
	apps, err := h.dashboard.Applications(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: apps, Count: len(apps)})
}

func (h *Handler) aliasForm(c *gin.Context) {
	form, err := h.dashboard.AliasForm(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, form)
}
