package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/dte-sv/pkg/config"
	"github.com/jhoicas/dte-sv/pkg/jwt"
)

var (
	tokenUser    string
	tokenCompany string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:     "token",
	Short:   "Emite un token HS256 para la API (JWT_SECRET)",
	Example: "  dtectl token --company 6f1c... --role emisor",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return errors.New("JWT_SECRET no está configurado")
		}
		tok, err := jwt.Generate(cfg.JWT.Secret, tokenUser, tokenCompany, tokenRole, cfg.JWT.Issuer, cfg.JWT.Expiration)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "dtectl", "identificador del usuario (sub)")
	tokenCmd.Flags().StringVar(&tokenCompany, "company", "", "ID de la empresa emisora")
	tokenCmd.Flags().StringVar(&tokenRole, "role", jwt.RoleEmisor, "rol: admin, emisor o consulta")
	_ = tokenCmd.MarkFlagRequired("company")
}
