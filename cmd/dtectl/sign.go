package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	infmh "github.com/jhoicas/dte-sv/internal/infrastructure/mh"
)

var (
	signCert     string
	signPassword string
)

var signCmd = &cobra.Command{
	Use:   "sign [dte.json]",
	Short: "Firma un DTE compilado como JWS RS512",
	Long: `Firma los bytes exactos del archivo con la llave privada del emisor.
Por defecto usa MH_CERT_PATH y MH_CERT_PASSWORD.`,
	Example: "  dtectl compile factura.json --issuer emisor.json -o dte.json\n  dtectl sign dte.json --cert emisor.p12",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if signCert == "" {
			return errors.New("indique --cert o MH_CERT_PATH")
		}
		key, err := infmh.LoadSigningKey(signCert, signPassword)
		if err != nil {
			return err
		}
		document, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("leer %s: %w", args[0], err)
		}
		jws, err := infmh.NewJWSSigner(key).Sign(cmd.Context(), document)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), jws)
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signCert, "cert", os.Getenv("MH_CERT_PATH"), "certificado .p12/.pfx o llave .pem")
	signCmd.Flags().StringVar(&signPassword, "password", os.Getenv("MH_CERT_PASSWORD"), "contraseña del certificado")
}
