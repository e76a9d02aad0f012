package logger

import "go.uber.org/zap"

// S retorna el SugaredLogger global, para los comandos de la CLI.
//
//	logger.S().Infow("migrations applied", "table", table)
func S() *zap.SugaredLogger {
	return L().Sugar()
}
