package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/jwksguard/internal/token"
)

func newDecodeCmd() *cobra.Command {
	var raw string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Muestra header y payload de un token SIN verificarlo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(raw) == "" {
				return fmt.Errorf("--token es requerido")
			}
			d, err := token.Decode(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"header":  d.RawHeader,
				"payload": d.Claims,
			})
		},
	}
	cmd.Flags().StringVar(&raw, "token", "", "Token JWT (compact)")
	return cmd
}
