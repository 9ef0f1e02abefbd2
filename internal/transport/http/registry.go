package httptransport

import (
	"github.com/gin-gonic/gin"

	"k9aliases/backend/internal/middleware"
	"k9aliases/backend/internal/service"
)

type domainRequest struct {
	DomainName  string `json:"domainName"`
	Description string `json:"description"`
}

type usernameRequest struct {
	Username    string `json:"username"`
	Description string `json:"description"`
}

type usernameUpdateRequest struct {
	Description string `json:"description"`
}

// ========== Custom Domains ==========

func (h *Handler) listDomains(c *gin.Context) {
	domains, err := h.domains.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: domains, Count: len(domains)})
}

// createDomain godoc
// @Summary 添加自定义域名
// @Tags Domains
// @Accept json
// @Produce json
// @Param request body domainRequest true "域名信息"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Failure 422 {object} Response
// @Router /v1/domains [post]
func (h *Handler) createDomain(c *gin.Context) {
	var req domainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	d, err := h.domains.Create(c.Request.Context(), middleware.UserID(c), service.DomainInput{
		DomainName:  req.DomainName,
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, "Domain added successfully!", d)
}

func (h *Handler) updateDomain(c *gin.Context) {
	var req domainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	d, err := h.domains.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), service.DomainInput{
		DomainName:  req.DomainName,
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Domain updated successfully!", d)
}

func (h *Handler) setDomainStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	if err := h.domains.SetActive(c.Request.Context(), middleware.UserID(c), c.Param("id"), *req.IsActive); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Domain status updated.", nil)
}

func (h *Handler) deleteDomain(c *gin.Context) {
	if err := h.domains.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Domain deleted successfully!", nil)
}

// ========== Custom Usernames ==========

func (h *Handler) listUsernames(c *gin.Context) {
	usernames, err := h.usernames.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: usernames, Count: len(usernames)})
}

// createUsername godoc
// @Summary 添加自定义用户名
// @Description 用户名须为邮箱格式，且不能与主邮箱或显示名相同
// @Tags Usernames
// @Accept json
// @Produce json
// @Param request body usernameRequest true "用户名信息"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Failure 422 {object} Response
// @Router /v1/usernames [post]
func (h *Handler) createUsername(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	u, err := h.usernames.Create(c.Request.Context(), middleware.UserID(c), service.UsernameInput{
		Username:    req.Username,
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, "Username added successfully!", u)
}

func (h *Handler) updateUsername(c *gin.Context) {
	var req usernameUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	u, err := h.usernames.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Description)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Username updated successfully!", u)
}

func (h *Handler) setUsernameStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	if err := h.usernames.SetActive(c.Request.Context(), middleware.UserID(c), c.Param("id"), *req.IsActive); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Username status updated.", nil)
}

func (h *Handler) deleteUsername(c *gin.Context) {
	if err := h.usernames.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Username deleted successfully!", nil)
}
