package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/jwksguard/internal/jwks"
)

func newJWKSCmd(load loadFunc) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Descarga el JWKS configurado y lista sus keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			client := jwks.NewClient(cfg.Auth.JWKSURI, jwks.WithTimeout(cfg.Network.Timeout))
			set, err := client.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			rows := describeKeys(set)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KID\tKTY\tALG\tUSABLE\tERROR")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.KID, r.Kty, r.Alg, r.Usable, r.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Salida JSON")
	return cmd
}

type keyRow struct {
	KID    string `json:"kid"`
	Kty    string `json:"kty,omitempty"`
	Alg    string `json:"alg,omitempty"`
	Usable bool   `json:"usable"`
	Error  string `json:"error,omitempty"`
}

// describeKeys indica, por key, si su x5c convierte a PEM.
func describeKeys(set *jwks.KeySet) []keyRow {
	rows := make([]keyRow, 0, len(set.Keys))
	for _, k := range set.Keys {
		r := keyRow{KID: k.KID, Kty: k.Kty, Alg: k.Alg, Usable: true}
		if _, err := jwks.ToPEM(k); err != nil {
			r.Usable, r.Error = false, err.Error()
		}
		rows = append(rows, r)
	}
	return rows
}
