package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the gateway login",
	}

	cmd.AddCommand(newAuthLoginCmd(app), newAuthTokenCmd(app), newAuthLogoutCmd(app), newAuthStatusCmd(app))

	return cmd
}

func newAuthLoginCmd(app *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			user, err := app.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			name := user.Name
			if name == "" {
				name = user.Email
			}
			return writeLine(cmd, "Logged in as %s <%s>", name, user.Email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// readPassword prompts without echo on a terminal and otherwise reads the
// first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err := term.ReadPassword(int(file.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newAuthTokenCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored bearer token",
	}

	var value string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store a bearer token issued elsewhere",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.auth.SetToken(cmd.Context(), value); err != nil {
				return err
			}
			return writeLine(cmd, "Token stored")
		},
	}
	setCmd.Flags().StringVar(&value, "value", "", "Bearer token")
	_ = setCmd.MarkFlagRequired("value")

	cmd.AddCommand(setCmd)
	return cmd
}

func newAuthLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			return writeLine(cmd, "Logged out")
		},
	}
}

func newAuthStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a bearer token is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := app.auth.Token(cmd.Context())
			switch {
			case errors.Is(err, domain.ErrCredentialNotFound):
				return writeLine(cmd, "Not logged in. Run `mt auth login --email <email>`.")
			case err != nil:
				return err
			}
			return writeLine(cmd, "Logged in (gateway %s)", app.config.GetString(keyGatewayBaseURL))
		},
	}
}
