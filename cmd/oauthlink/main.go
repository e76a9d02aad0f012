// Command oauthlink sirve el login social (OAuth1/OAuth2) sobre HTTP y expone
// tareas operativas: migraciones y firma de requests OAuth1 para debugging.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/oauthlink/internal/config"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:           "oauthlink",
		Short:         "Login social OAuth1/OAuth2 con cuentas locales",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env es opcional: sin archivo seguimos con el entorno del sistema
			_ = godotenv.Load(f.envFile)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "Ruta al config.yaml (opcional, env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "Archivo .env a cargar antes de leer la configuración")

	root.AddCommand(newServeCmd(&f), newMigrateCmd(&f), newSignCmd())
	return root
}

// loadConfig lee la configuración e inicializa el logger.
func loadConfig(f *rootFlags) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "oauthlink",
	})
	return cfg, nil
}
