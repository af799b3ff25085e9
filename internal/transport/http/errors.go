package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mailsync/backend/internal/provider"
	"mailsync/backend/internal/storage"
	syncengine "mailsync/backend/internal/sync"
)

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgInternalError  = "服务器内部错误，请稍后重试"
)

// RespondError 将业务错误映射为带中文消息的统一响应
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, syncengine.ErrUnknownAccount), errors.Is(err, storage.ErrAccountNotFound):
		NotFound(c, "账户不存在，请先完成账户关联")
	case errors.Is(err, syncengine.ErrSyncInProgress):
		Conflict(c, "该账户正在同步中")
	case errors.Is(err, syncengine.ErrNoDeltaToken):
		Conflict(c, "账户尚未完成首次同步")
	case errors.Is(err, syncengine.ErrInitialSyncTimeout):
		GatewayTimeout(c, "邮箱准备超时，请稍后重试")
	case errors.Is(err, provider.ErrRemoteRejected):
		Unauthorized(c, "访问令牌无效或已过期")
	case errors.Is(err, provider.ErrRemoteUnavailable):
		BadGateway(c, "邮件服务商暂时不可用，请稍后重试")
	default:
		InternalError(c, MsgInternalError)
	}
}
