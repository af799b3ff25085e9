package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailsync/backend/internal/domain"
)

// SleepFunc 可注入的休眠实现，测试中用于消除真实等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepWithContext 默认休眠实现，支持取消
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ReadinessPoller 驱动远端邮箱从"未就绪"到"就绪"的显式状态机。
//
// 状态迁移: Probing -> Ready | Failed。远端异步准备邮箱快照，
// 固定间隔重探、有限次数上限，避免无界阻塞。
type ReadinessPoller struct {
	client      RemoteClient
	interval    time.Duration
	maxAttempts int
	sleep       SleepFunc
	logger      *zap.Logger
}

// NewReadinessPoller 创建就绪轮询器
func NewReadinessPoller(client RemoteClient, interval time.Duration, maxAttempts int, log *zap.Logger) *ReadinessPoller {
	return &ReadinessPoller{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepWithContext,
		logger:      log,
	}
}

// WaitUntilReady 探测直至远端就绪，返回游走器的起始游标。
//
// 最多探测 maxAttempts 次（含首次），相邻探测间隔固定；
// 达到上限仍未就绪返回 ErrInitialSyncTimeout，本轮同步终止，
// 调用方可稍后重新发起整轮同步。
func (p *ReadinessPoller) WaitUntilReady(ctx context.Context, credential string, windowDays int) (domain.SyncCursor, error) {
	var deltaToken string

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		resp, err := p.client.StartSync(ctx, credential, windowDays)
		if err != nil {
			return domain.SyncCursor{}, err
		}

		// 未就绪的探测也可能下发游标，保留最新值
		if resp.SyncUpdatedToken != "" {
			deltaToken = resp.SyncUpdatedToken
		}

		if resp.Ready {
			p.logger.Debug("mailbox ready",
				zap.Int("attempt", attempt),
			)
			return domain.SyncCursor{DeltaToken: deltaToken}, nil
		}

		if attempt == p.maxAttempts {
			break
		}

		p.logger.Debug("mailbox not ready, waiting",
			zap.Int("attempt", attempt),
			zap.Duration("interval", p.interval),
		)
		if err := p.sleep(ctx, p.interval); err != nil {
			return domain.SyncCursor{}, err
		}
	}

	return domain.SyncCursor{}, ErrInitialSyncTimeout
}
