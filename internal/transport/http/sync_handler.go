package httptransport

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/monitoring"
	"mailsync/backend/internal/provider"
	"mailsync/backend/internal/storage"
	syncengine "mailsync/backend/internal/sync"
)

// ProfileFetcher 账户身份查询能力
type ProfileFetcher interface {
	FetchAccountProfile(ctx context.Context, credential string) (*provider.Profile, error)
}

// SyncHandler 处理账户关联与同步触发请求
type SyncHandler struct {
	store   storage.Store
	remote  ProfileFetcher
	manager *syncengine.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewSyncHandler 创建同步处理器。metrics 允许为 nil。
func NewSyncHandler(store storage.Store, remote ProfileFetcher, manager *syncengine.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		store:   store,
		remote:  remote,
		manager: manager,
		metrics: metrics,
		logger:  logger,
	}
}

// LinkAccountRequest 账户关联请求
type LinkAccountRequest struct {
	AccountID   string `json:"accountId" binding:"required"`
	UserID      string `json:"userId" binding:"required"`
	AccessToken string `json:"accessToken" binding:"required"`
}

// LinkAccount 关联远端邮箱账户
// POST /api/v1/accounts/link
func (h *SyncHandler) LinkAccount(c *gin.Context) {
	var req LinkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	profile, err := h.remote.FetchAccountProfile(c.Request.Context(), req.AccessToken)
	if err != nil {
		h.logger.Warn("failed to fetch account profile",
			zap.String("account_id", req.AccountID),
			zap.Error(err),
		)
		RespondError(c, err)
		return
	}

	account := &domain.Account{
		ID:          req.AccountID,
		UserID:      req.UserID,
		Email:       profile.Email,
		Name:        profile.Name,
		AccessToken: req.AccessToken,
		SyncStatus:  domain.SyncStatusIdle,
	}
	if err := h.store.SaveAccount(c.Request.Context(), account); err != nil {
		h.logger.Error("failed to save account", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAccountRegistered()
	}

	Created(c, account)
}

// TriggerSyncRequest 同步触发请求。AccessToken 可选，提供时先刷新存储的凭证。
type TriggerSyncRequest struct {
	AccountID   string `json:"accountId" binding:"required"`
	AccessToken string `json:"accessToken"`
}

// TriggerInitialSync 触发首次全量同步
// POST /api/v1/sync
func (h *SyncHandler) TriggerInitialSync(c *gin.Context) {
	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if req.AccessToken != "" {
		account, err := h.store.GetAccount(c.Request.Context(), req.AccountID)
		if err != nil {
			RespondError(c, err)
			return
		}
		account.AccessToken = req.AccessToken
		if err := h.store.SaveAccount(c.Request.Context(), account); err != nil {
			h.logger.Error("failed to refresh access token", zap.Error(err))
			InternalError(c, MsgInternalError)
			return
		}
	}

	result, err := h.manager.RunInitialSync(c.Request.Context(), req.AccountID)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, result)
}

// TriggerIncrementalSync 触发一轮增量同步
// POST /api/v1/sync/incremental
func (h *SyncHandler) TriggerIncrementalSync(c *gin.Context) {
	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.manager.RunIncrementalSync(c.Request.Context(), req.AccountID)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, result)
}

// AccountStatus 查询账户同步状态
// GET /api/v1/accounts/:id/status
func (h *SyncHandler) AccountStatus(c *gin.Context) {
	accountID := c.Param("id")

	account, err := h.store.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		RespondError(c, err)
		return
	}

	messages, err := h.store.CountMessages(c.Request.Context(), accountID)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	addresses, err := h.store.CountAddresses(c.Request.Context(), accountID)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, gin.H{
		"accountId":    account.ID,
		"email":        account.Email,
		"syncStatus":   account.SyncStatus,
		"syncError":    account.SyncError,
		"lastSyncedAt": account.LastSyncedAt,
		"syncing":      h.manager.IsRunning(account.ID),
		"messages":     messages,
		"addresses":    addresses,
	})
}
