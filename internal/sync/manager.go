package sync

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Manager 对同步引擎做按账户的单飞控制。
// 同一账户同一时刻至多一轮同步在执行，重复触发返回 ErrSyncInProgress。
type Manager struct {
	engine *Engine
	logger *zap.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// NewManager 创建同步管理器
func NewManager(engine *Engine, log *zap.Logger) *Manager {
	return &Manager{
		engine:  engine,
		logger:  log,
		running: make(map[string]struct{}),
	}
}

// RunInitialSync 单飞执行首次同步
func (m *Manager) RunInitialSync(ctx context.Context, accountID string) (*Result, error) {
	release, err := m.acquire(accountID)
	if err != nil {
		return nil, err
	}
	defer release()
	return m.engine.RunInitialSync(ctx, accountID)
}

// RunIncrementalSync 单飞执行增量同步
func (m *Manager) RunIncrementalSync(ctx context.Context, accountID string) (*Result, error) {
	release, err := m.acquire(accountID)
	if err != nil {
		return nil, err
	}
	defer release()
	return m.engine.RunIncrementalSync(ctx, accountID)
}

// IsRunning 查询账户当前是否有同步在执行
func (m *Manager) IsRunning(accountID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[accountID]
	return ok
}

// SyncAll 对所有已有增量游标的账户各执行一轮增量同步。
// 单个账户失败只记日志，不影响其余账户。
func (m *Manager) SyncAll(ctx context.Context) {
	accounts, err := m.engine.store.ListAccounts(ctx)
	if err != nil {
		m.logger.Error("failed to list accounts for background sync", zap.Error(err))
		return
	}

	for _, account := range accounts {
		if account.DeltaToken == nil || *account.DeltaToken == "" {
			continue
		}
		if _, err := m.RunIncrementalSync(ctx, account.ID); err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				continue
			}
			m.logger.Warn("background incremental sync failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}
}

// acquire 占用账户的同步槽位，返回释放函数
func (m *Manager) acquire(accountID string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.running[accountID]; ok {
		return nil, ErrSyncInProgress
	}
	m.running[accountID] = struct{}{}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.running, accountID)
	}, nil
}
