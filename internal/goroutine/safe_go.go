package goroutine

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/logger"
)

// Go запускает фоновую задачу. Panic внутри fn логируется с именем задачи и не роняет процесс.
func Go(task string, fn func()) {
	go func() {
		defer Recover(task)
		fn()
	}()
}

// Recover должен вызываться через defer.
func Recover(task string) {
	if r := recover(); r != nil {
		logger.Log.WithFields(logrus.Fields{
			"task":  task,
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("goroutine: паника в фоновой задаче")
	}
}
