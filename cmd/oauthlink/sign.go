package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/oauthlink/internal/oauth1"
)

// newSignCmd imprime el header Authorization OAuth1 de un request.
// Útil para comparar firmas contra un provider con curl.
func newSignCmd() *cobra.Command {
	var (
		method         string
		consumerKey    string
		consumerSecret string
		token          string
		tokenSecret    string
		params         []string
	)

	cmd := &cobra.Command{
		Use:   "sign <url>",
		Short: "Firma un request OAuth1 (HMAC-SHA1) y muestra el header Authorization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if consumerKey == "" || consumerSecret == "" {
				return fmt.Errorf("--consumer-key y --consumer-secret son requeridos")
			}
			body := url.Values{}
			for _, p := range params {
				k, v, ok := strings.Cut(p, "=")
				if !ok || k == "" {
					return fmt.Errorf("--param %q: formato esperado key=value", p)
				}
				body.Add(k, v)
			}

			s := oauth1.NewSigner(consumerKey, consumerSecret).WithToken(token, tokenSecret)
			fmt.Fprintln(cmd.OutOrStdout(), s.AuthorizationHeader(strings.ToUpper(method), args[0], body))
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", "POST", "Método HTTP")
	cmd.Flags().StringVar(&consumerKey, "consumer-key", "", "Consumer key")
	cmd.Flags().StringVar(&consumerSecret, "consumer-secret", "", "Consumer secret")
	cmd.Flags().StringVar(&token, "token", "", "Token (opcional)")
	cmd.Flags().StringVar(&tokenSecret, "token-secret", "", "Token secret (opcional)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Parámetro de body key=value (repetible)")
	return cmd
}
