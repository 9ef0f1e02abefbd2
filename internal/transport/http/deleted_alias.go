package httptransport

import (
	"github.com/gin-gonic/gin"

	"k9aliases/backend/internal/middleware"
)

func (h *Handler) listDeletedAliases(c *gin.Context) {
	aliases, err := h.aliases.ListDeleted(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: aliases, Count: len(aliases)})
}

// restoreAlias godoc
// @Summary 恢复已删除别名
// @Description 有空余配额时恢复为启用，否则恢复为停用
// @Tags Deleted Aliases
// @Produce json
// @Param id path string true "别名ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /v1/deleted-aliases/{id}/restore [post]
func (h *Handler) restoreAlias(c *gin.Context) {
	result, err := h.aliases.Restore(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, result.Message, result)
}

func (h *Handler) permanentlyDeleteAlias(c *gin.Context) {
	if err := h.aliases.PermanentlyDelete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Alias permanently deleted.", nil)
}
