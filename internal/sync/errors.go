package sync

import "errors"

var (
	// ErrInitialSyncTimeout 就绪探测达到次数上限仍未就绪，本轮同步终止
	ErrInitialSyncTimeout = errors.New("initial sync timed out waiting for mailbox readiness")
	// ErrUnknownAccount 账户在本地注册表中不存在，违反编排器前置条件
	ErrUnknownAccount = errors.New("unknown account")
	// ErrSyncInProgress 同一账户已有同步在执行
	ErrSyncInProgress = errors.New("sync already in progress for this account")
	// ErrNoDeltaToken 账户尚无增量游标，无法执行增量同步
	ErrNoDeltaToken = errors.New("account has no delta token, run initial sync first")
	// ErrNoDeltaTokenFromRemote 远端在最后一页未返回增量游标
	ErrNoDeltaTokenFromRemote = errors.New("remote returned no delta token on final page")
)
