package httptransport

import (
	"context"

	"github.com/gin-gonic/gin"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/middleware"
	"k9aliases/backend/internal/service"
)

type createAliasRequest struct {
	Alias       string `json:"alias"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

type statusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// bulkRequest ids 缺省或为空表示作用于该状态下的全部记录
type bulkRequest struct {
	IDs []string `json:"ids"`
}

type generateRequest struct {
	Mode        string `json:"mode"`
	Identity    string `json:"identity"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Length      int    `json:"length"`
	LocalPart   string `json:"localPart"`
	Domain      string `json:"domain"`
}

type bulkFunc func(ctx context.Context, userID string, ids []string) (*service.Result, error)

// listAliases godoc
// @Summary 获取别名列表
// @Description 按创建时间倒序返回在用别名，可按状态过滤
// @Tags Aliases
// @Produce json
// @Param status query string false "active 或 inactive"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /v1/aliases [get]
func (h *Handler) listAliases(c *gin.Context) {
	state := domain.AliasState(c.Query("status"))
	switch state {
	case domain.AliasStateAny, domain.AliasStateActive, domain.AliasStateInactive:
	default:
		BadRequest(c, "Status must be active or inactive.")
		return
	}

	aliases, err := h.aliases.List(c.Request.Context(), middleware.UserID(c), state)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: aliases, Count: len(aliases)})
}

// createAlias godoc
// @Summary 创建别名
// @Tags Aliases
// @Accept json
// @Produce json
// @Param request body createAliasRequest true "别名地址与描述"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Failure 422 {object} Response
// @Router /v1/aliases [post]
func (h *Handler) createAlias(c *gin.Context) {
	var req createAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.aliases.Create(c.Request.Context(), middleware.UserID(c), service.CreateAliasInput{
		Address:     req.Alias,
		Description: req.Description,
		Active:      req.IsActive,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, "Alias saved successfully!", alias)
}

func (h *Handler) searchAliases(c *gin.Context) {
	aliases, err := h.aliases.Search(c.Request.Context(), middleware.UserID(c), c.Query("q"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: aliases, Count: len(aliases)})
}

func (h *Handler) aliasCounts(c *gin.Context) {
	counts, err := h.aliases.Counts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, counts)
}

// generateAliases godoc
// @Summary 生成候选别名
// @Description 只返回候选地址，保存需调用创建接口
// @Tags Aliases
// @Accept json
// @Produce json
// @Param request body generateRequest true "生成参数"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 422 {object} Response
// @Router /v1/aliases/generate [post]
func (h *Handler) generateAliases(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	addresses, err := h.dashboard.Generate(c.Request.Context(), middleware.UserID(c), service.GenerateInput{
		Mode:        req.Mode,
		Identity:    req.Identity,
		Description: req.Description,
		Count:       req.Count,
		Length:      req.Length,
		LocalPart:   req.LocalPart,
		Domain:      req.Domain,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: addresses, Count: len(addresses)})
}

func (h *Handler) setAliasStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.aliases.SetActive(c.Request.Context(), middleware.UserID(c), c.Param("id"), *req.IsActive); err != nil {
		RespondError(c, err)
		return
	}

	msg := "Alias deactivated."
	if *req.IsActive {
		msg = "Alias activated."
	}
	SuccessWithMsg(c, msg, nil)
}

func (h *Handler) deleteAlias(c *gin.Context) {
	if err := h.aliases.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Alias moved to deleted aliases.", nil)
}

// bulk 包装批量操作：解析可选的 ids，返回聚合结果
func (h *Handler) bulk(fn bulkFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				BadRequest(c, MsgInvalidRequest)
				return
			}
		}

		result, err := fn(c.Request.Context(), middleware.UserID(c), req.IDs)
		if err != nil {
			RespondError(c, err)
			return
		}
		SuccessWithMsg(c, result.Message, result)
	}
}
