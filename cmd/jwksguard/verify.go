package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/jwksguard/internal/app"
	"github.com/dropDatabas3/jwksguard/internal/authz"
)

// verifyResult es lo que imprime `jwksguard verify`.
type verifyResult struct {
	Authorized  bool   `json:"authorized"`
	PrincipalID string `json:"principal_id,omitempty"`
	FastPath    bool   `json:"fast_path,omitempty"`
	KeySource   string `json:"key_source,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newVerifyCmd(load loadFunc) *cobra.Command {
	var raw string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Corre el guard completo una vez contra un token y muestra la decisión",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(raw) == "" {
				return fmt.Errorf("--token es requerido")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			c, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			h := http.Header{}
			h.Set("Authorization", "Bearer "+strings.TrimSpace(raw))
			d, aerr := c.Authorizer.Authorize(cmd.Context(), authz.Request{Point: authz.PointBefore, Header: h})

			res := decisionResult(d, aerr)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Authorized {
				return fmt.Errorf("not authorized: %s", res.Kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&raw, "token", "", "Token JWT (compact)")
	return cmd
}

func decisionResult(d *authz.Decision, err error) verifyResult {
	if err != nil {
		return verifyResult{Kind: string(authz.KindOf(err)), Error: err.Error()}
	}
	return verifyResult{
		Authorized:  true,
		PrincipalID: d.Principal.ID,
		FastPath:    d.FastPath,
		KeySource:   string(d.KeySource),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
