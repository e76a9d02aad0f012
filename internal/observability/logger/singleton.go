package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init construye el logger global. Solo la primera llamada tiene efecto.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L retorna el logger global; sin Init previo usa consola en info.
func L() *zap.Logger {
	Init(Config{Level: "info"})
	return instance
}

func Sync() error {
	if instance == nil {
		return nil
	}
	return instance.Sync()
}
