package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google Calendar access",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	return cmd
}

// codeExchanger is the part of google.Authenticator used by login.
type codeExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, account, code string) error
}

func newAuthLoginCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Grant calendar access for a person",
		Long: `Print the Google consent URL for a person, then read the authorization
code from --code or standard input and store the resulting token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			auth, err := a.authenticator(ctx)
			if err != nil {
				return err
			}
			return runLogin(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), auth, args[0], code)
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code (default: read from stdin)")
	return cmd
}

func runLogin(ctx context.Context, in io.Reader, out io.Writer, auth codeExchanger, email, code string) error {
	if code == "" {
		fmt.Fprintf(out, "Open this URL as %s and grant calendar access:\n\n%s\n\nAuthorization code: ", email, auth.AuthURL(email))
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read authorization code: %w", err)
		}
		code = strings.TrimSpace(line)
	}
	if code == "" {
		return errors.New("no authorization code given")
	}
	if err := auth.Exchange(ctx, email, code); err != nil {
		return err
	}
	fmt.Fprintf(out, "stored calendar access for %s\n", email)
	return nil
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <email>...",
		Short: "Report whether a token is stored for each person",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			auth, err := a.authenticator(ctx)
			if err != nil {
				return err
			}
			for _, email := range args {
				state := "not logged in"
				if auth.Provider().HasTokenForAccount(ctx, email) {
					state = "logged in"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", email, state)
			}
			return nil
		},
	}
}
