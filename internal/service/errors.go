package service

import "errors"

// 哨兵错误：对外统一语义，调用方用 errors.Is 判断
var (
	// ErrInvalidInput 入参不合法（空编码、空名称、自己做自己的上级等）
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal 依赖未注入等内部错误
	ErrInternal = errors.New("internal error")
	// ErrPositionNotFound 指定的职位编码不存在
	ErrPositionNotFound = errors.New("org position not found")
	// ErrManagerNotFound 席位引用的上级节点不存在
	ErrManagerNotFound = errors.New("manager employee not found")
	// ErrManagerCycle 汇报链存在环（账号之间或席位之间），拒绝写入
	ErrManagerCycle = errors.New("manager chain contains a cycle")
	// ErrEmployeeCycle 已落库的组织架构树存在环
	ErrEmployeeCycle = errors.New("employee tree contains a cycle")
	// ErrTeardownFailed 两阶段清空 employees 表仍然失败
	ErrTeardownFailed = errors.New("failed to clear employee table")
	// ErrSyncInProgress 另一个同步进程持有运行锁
	ErrSyncInProgress = errors.New("another synchronization is in progress")
)
