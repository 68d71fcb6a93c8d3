package safe

import (
	"PPCommunity/tools/errs"

	"go.uber.org/zap"
)

// Go starts f on a new goroutine that recovers from panic, so that a panic in
// one connection's goroutine doesn't crash the entire program.
func Go(log *zap.Logger, name string, f func()) {
	go func() {
		defer Recover(log, name, nil)
		f()
	}()
}

// Recover must be deferred. It logs a recovered panic and hands it, converted to
// an error, to onPanic when set.
func Recover(log *zap.Logger, name string, onPanic func(error)) {
	r := recover()
	if r == nil {
		return
	}
	err := errs.ErrPanic(r)
	if log != nil {
		log.Error("[SafeGo] panic recovered", zap.String("goroutine", name), zap.Error(err))
	}
	if onPanic != nil {
		onPanic(err)
	}
}
