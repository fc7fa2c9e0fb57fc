// Package poll 按固定间隔重复执行一轮遍历，直到收到停止信号。
package poll

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/John-Robertt/searchpdf/internal/domain"
)

// UnexpectedError 表示一轮遍历被非预期错误（含 panic）中断。
// 本轮结果作废；循环在休眠后重新开始。
type UnexpectedError struct {
	Err   error
	Stack []byte // 仅 panic 时有值
}

func (e *UnexpectedError) Error() string {
	if e == nil {
		return "unexpected error"
	}
	return fmt.Sprintf("%s：本轮中断：%v", domain.ErrCodeUnexpected, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// IsUnexpected 判断 err 是否为 UnexpectedError。
func IsUnexpected(err error) bool {
	var e *UnexpectedError
	return errors.As(err, &e)
}

// MinInterval 是两轮之间的最短休眠；sleep_time=0 时也不会空转重扫目录树。
const MinInterval = 200 * time.Millisecond

// PassFunc 执行一轮遍历。返回 error 表示本轮无法完成。
type PassFunc func(ctx context.Context) (domain.PassReport, error)

// Loop 是轮询循环；零值不可用，Pass 必填。
type Loop struct {
	Interval time.Duration
	Pass     PassFunc

	// Sleep 为空时使用 SleepContext。返回非 nil 表示应停止（通常是 ctx 取消）。
	Sleep func(ctx context.Context, d time.Duration) error

	// OnPass 在每轮结束后调用；err 为 *UnexpectedError 时 rep 只包含中断前的信息。
	OnPass func(rep domain.PassReport, err error)
}

// Run 重复“执行一轮 -> 汇报 -> 休眠”，直到 ctx 被取消；正常停止时返回 nil。
func (l *Loop) Run(ctx context.Context) error {
	if l.Pass == nil {
		return errors.New("poll: Pass 不能为空")
	}
	sleep := l.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		rep, err := l.RunOnce(ctx)
		if l.OnPass != nil {
			l.OnPass(rep, err)
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := sleep(ctx, max(l.Interval, MinInterval)); err != nil {
			return nil
		}
	}
}

// RunOnce 恰好执行一轮；panic 与 Pass 返回的错误都转换为 *UnexpectedError。
func (l *Loop) RunOnce(ctx context.Context) (rep domain.PassReport, err error) {
	if l.Pass == nil {
		return domain.PassReport{}, errors.New("poll: Pass 不能为空")
	}
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &UnexpectedError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
		if err != nil {
			rep = aborted(rep, started, err)
		}
	}()

	rep, err = l.Pass(ctx)
	if err != nil && !IsUnexpected(err) {
		err = &UnexpectedError{Err: err}
	}
	return rep, err
}

func aborted(rep domain.PassReport, started time.Time, err error) domain.PassReport {
	if rep.StartedAt.IsZero() {
		rep.StartedAt = started
	}
	if rep.FinishedAt.IsZero() {
		rep.FinishedAt = time.Now()
	}
	rep.Aborted = true
	rep.AbortMsg = err.Error()
	rep.Finalize()
	return rep
}

// SleepContext 休眠 d；ctx 取消时提前返回 ctx.Err()。
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
