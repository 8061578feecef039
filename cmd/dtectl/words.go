package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/dte-sv/internal/domain/dte"
)

var wordsCurrency string

var wordsCmd = &cobra.Command{
	Use:     "words [monto]",
	Short:   "Convierte un monto a letras (campo totalLetras)",
	Example: "  dtectl words 1113.56\n  dtectl words 250 --currency EUR",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("monto inválido %q: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), dte.AmountInWords(amount, wordsCurrency))
		return nil
	},
}

func init() {
	wordsCmd.Flags().StringVar(&wordsCurrency, "currency", "USD", "moneda (USD agrega DÓLARES)")
}
