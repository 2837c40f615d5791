// internal/pkg/uow/uow.go

// Package uow 实现请求级的工作单元协调：
// 每个在途请求独占一个工作单元句柄，变更类请求在句柄内
// 打开显式数据库事务，句柄随请求结束无条件释放。
package uow

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork 是绑定到单个请求的工作单元句柄。
// 句柄绝不跨请求共享：它通过请求上下文向下传递，而不是存放在
// 任何全局/环境状态中。
type UnitOfWork interface {
	// Context 返回携带本句柄的派生上下文，供仓储层解析出事务连接。
	Context(parent context.Context) context.Context
	// Commit 提交打开的事务；只读句柄上为空操作。重复调用为空操作。
	Commit() error
	// Rollback 回滚打开的事务；只读句柄上为空操作。重复调用为空操作。
	Rollback() error
	// Transactional 报告该句柄是否真正打开了事务边界。
	Transactional() bool
}

// Beginner 为一次请求分配新的工作单元。
type Beginner interface {
	// Begin 创建句柄。mutating 为 false 时只读，不打开事务，
	// 避免无谓的锁与连接占用。
	Begin(ctx context.Context, mutating bool) (UnitOfWork, error)
}

type dbKey struct{}

// WithDB 把数据库句柄放入上下文。
func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DBFrom 解析上下文中的数据库句柄；请求不在工作单元内时回退到
// 基础（非事务）连接。
func DBFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if db, ok := ctx.Value(dbKey{}).(*gorm.DB); ok {
		return db
	}
	return fallback.WithContext(ctx)
}

// GormBeginner 是 Beginner 的 GORM 实现。
type GormBeginner struct {
	db *gorm.DB
}

func NewGormBeginner(db *gorm.DB) *GormBeginner {
	return &GormBeginner{db: db}
}

func (b *GormBeginner) Begin(ctx context.Context, mutating bool) (UnitOfWork, error) {
	if !mutating {
		return &gormUnitOfWork{db: b.db.WithContext(ctx)}, nil
	}
	tx := b.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{db: tx, transactional: true}, nil
}

type gormUnitOfWork struct {
	db            *gorm.DB
	transactional bool
	done          bool
}

func (u *gormUnitOfWork) Context(parent context.Context) context.Context {
	return WithDB(parent, u.db)
}

func (u *gormUnitOfWork) Commit() error {
	if !u.transactional || u.done {
		return nil
	}
	u.done = true
	return u.db.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	if !u.transactional || u.done {
		return nil
	}
	u.done = true
	return u.db.Rollback().Error
}

func (u *gormUnitOfWork) Transactional() bool {
	return u.transactional
}
