package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jhoicas/dte-sv/pkg/logger"
)

var version = "0.1.0"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "dtectl",
	Short: "Herramientas del motor de Documentos Tributarios Electrónicos (El Salvador)",
	Long: `dtectl compila facturas a DTE fuera de línea, convierte montos a letras,
firma documentos con el certificado del emisor, aplica las migraciones de la
base de datos y emite tokens para la API.

La configuración se lee de variables de entorno (y de .env si existe).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "nivel de log (debug, info, warn, error)")
	rootCmd.AddCommand(compileCmd, wordsCmd, signCmd, migrateCmd, tokenCmd)
}

// cliLogger escribe en stderr para no mezclar los logs con la salida JSON.
func cliLogger(component string) zerolog.Logger {
	return logger.New(logger.Config{Env: "development", Level: logLevel, Output: os.Stderr}).
		Component(component).
		Zerolog()
}
