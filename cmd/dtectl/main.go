// Command dtectl herramientas de línea de comandos para el motor de DTE:
// compilación fuera de línea, monto en letras, firma, migraciones y tokens de la API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env es opcional: las variables del entorno siguen teniendo prioridad.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "advertencia: no se pudo leer .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
