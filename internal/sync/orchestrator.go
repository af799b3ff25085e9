package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mailsync/backend/internal/config"
	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/monitoring"
	"mailsync/backend/internal/storage"
)

// Result 一轮同步的执行结果
type Result struct {
	DeltaToken  string          `json:"deltaToken"`
	RecordCount int             `json:"recordCount"`
	Persisted   int             `json:"persisted"`
	Failures    []RecordFailure `json:"failures,omitempty"`
}

// Engine 串联就绪探测、增量游走、地址解析与落库流水线的同步编排器。
//
// 游标推进规则：只有整轮（探测、游走、解析、落库）全部走通才持久化
// 新游标；任何阶段失败游标保持不动，下一轮从上一个已持久化的游标
// 重走，重放由落库幂等性兜底。单条记录失败不算阶段失败。
type Engine struct {
	store      storage.Store
	poller     *ReadinessPoller
	walker     *DeltaWalker
	resolver   *AddressResolver
	pipeline   *UpsertPipeline
	windowDays int
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewEngine 创建同步编排器。metrics 允许为 nil（测试场景）。
func NewEngine(store storage.Store, client RemoteClient, cfg *config.Config, metrics *monitoring.Metrics, log *zap.Logger) *Engine {
	return &Engine{
		store:      store,
		poller:     NewReadinessPoller(client, cfg.Sync.PollInterval, cfg.Sync.PollMaxAttempts, log),
		walker:     NewDeltaWalker(client, log),
		resolver:   NewAddressResolver(store, log),
		pipeline:   NewUpsertPipeline(store, cfg.Sync.UpsertConcurrency, log),
		windowDays: cfg.Provider.SyncWindowDays,
		metrics:    metrics,
		logger:     log,
	}
}

// RunInitialSync 对账户执行首次全量同步。
// 等待远端邮箱就绪后走完整个变更流，成功后持久化增量游标。
func (e *Engine) RunInitialSync(ctx context.Context, accountID string) (*Result, error) {
	return e.runPass(ctx, accountID, "initial")
}

// RunIncrementalSync 基于已持久化的增量游标执行一轮增量同步。
// 账户尚无游标时返回 ErrNoDeltaToken，需先完成首次同步。
func (e *Engine) RunIncrementalSync(ctx context.Context, accountID string) (*Result, error) {
	return e.runPass(ctx, accountID, "incremental")
}

func (e *Engine) runPass(ctx context.Context, accountID, kind string) (*Result, error) {
	start := time.Now()

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}

	var cursor domain.SyncCursor
	if kind == "incremental" {
		if account.DeltaToken == nil || *account.DeltaToken == "" {
			return nil, ErrNoDeltaToken
		}
		cursor = domain.SyncCursor{DeltaToken: *account.DeltaToken}
	}

	if err := e.store.UpdateSyncStatus(ctx, accountID, domain.SyncStatusSyncing, ""); err != nil {
		return nil, err
	}

	result, err := e.executePass(ctx, account, kind, cursor)
	if err != nil {
		if e.metrics != nil && errors.Is(err, ErrInitialSyncTimeout) {
			e.metrics.RecordReadinessTimeout()
		}
		e.recordPass(kind, "error", nil, time.Since(start))
		if statusErr := e.store.UpdateSyncStatus(ctx, accountID, domain.SyncStatusError, err.Error()); statusErr != nil {
			e.logger.Error("failed to record sync error status",
				zap.String("account_id", accountID),
				zap.Error(statusErr),
			)
		}
		return nil, err
	}

	e.recordPass(kind, "success", result, time.Since(start))
	if statusErr := e.store.UpdateSyncStatus(ctx, accountID, domain.SyncStatusSynced, ""); statusErr != nil {
		e.logger.Error("failed to record sync success status",
			zap.String("account_id", accountID),
			zap.Error(statusErr),
		)
	}

	e.logger.Info("sync pass completed",
		zap.String("account_id", accountID),
		zap.String("kind", kind),
		zap.Int("records", result.RecordCount),
		zap.Int("persisted", result.Persisted),
		zap.Int("failed", len(result.Failures)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// executePass 执行探测、游走、解析、落库四个阶段并推进游标
func (e *Engine) executePass(ctx context.Context, account *domain.Account, kind string, cursor domain.SyncCursor) (*Result, error) {
	if kind == "initial" {
		ready, err := e.poller.WaitUntilReady(ctx, account.AccessToken, e.windowDays)
		if err != nil {
			return nil, err
		}
		cursor = ready
	}

	walk, err := e.walker.Walk(ctx, account.AccessToken, cursor)
	if err != nil {
		return nil, err
	}
	if walk.DeltaToken == "" {
		return nil, ErrNoDeltaTokenFromRemote
	}
	if e.metrics != nil {
		e.metrics.RecordPagesFetched(walk.Pages)
	}

	addresses, err := e.resolver.Resolve(ctx, account.ID, walk.Records)
	if err != nil {
		return nil, err
	}

	batch, err := e.pipeline.PersistBatch(ctx, account.ID, walk.Records, addresses)
	if err != nil {
		return nil, err
	}

	// 整轮走通，推进持久化游标
	if err := e.store.UpdateDeltaToken(ctx, account.ID, walk.DeltaToken); err != nil {
		return nil, err
	}

	return &Result{
		DeltaToken:  walk.DeltaToken,
		RecordCount: len(walk.Records),
		Persisted:   batch.Persisted,
		Failures:    batch.Failures,
	}, nil
}

// recordPass 上报一轮同步的观测指标，metrics 为 nil 时跳过
func (e *Engine) recordPass(kind, outcome string, result *Result, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	fetched, persisted, failed := 0, 0, 0
	if result != nil {
		fetched = result.RecordCount
		persisted = result.Persisted
		failed = len(result.Failures)
	}
	e.metrics.RecordSyncPass(kind, outcome, fetched, persisted, failed, elapsed)
}
