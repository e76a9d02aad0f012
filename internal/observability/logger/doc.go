// Package logger expone el logger zap del servicio.
//
// main.go lo inicializa una vez:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// Los handlers y el manager toman el logger del request:
//
//	log := logger.From(ctx).With(logger.Layer("oauth"), logger.Op("Login"))
//	log.Info("identity linked", logger.Alias(alias), logger.UserID(userID))
package logger
