package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-invoicing-client/auth"
)

func newLoginCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Example: `  invoicing login --email a@b.com --password secret

  # Read the password from the environment
  INVOICING_PASSWORD=secret invoicing login --email a@b.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("INVOICING_PASSWORD")
			}

			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}

			profile, err := c.Auth().Login(cmd.Context(), auth.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(profile))
			return nil
		},
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (default: $INVOICING_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// newGoogleLoginCommand exchanges a Google ID token, obtained out of band
// for INVOICING_GOOGLE_CLIENT_ID, for a session.
func newGoogleLoginCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login-google",
		Short: "Sign in with a Google ID token",
		Example: `  invoicing login-google --id-token eyJhbGciOi...
  INVOICING_GOOGLE_ID_TOKEN=eyJhbGciOi... invoicing login-google`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString("id-token")
			if token == "" {
				token = os.Getenv("INVOICING_GOOGLE_ID_TOKEN")
			}

			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}

			provider := c.GoogleProvider(auth.CredentialFunc(func(context.Context) (string, error) {
				return token, nil
			}))
			profile, err := c.Auth().GoogleLogin(cmd.Context(), provider)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(profile))
			return nil
		},
	}

	cmd.Flags().String("id-token", "", "Google ID token (default: $INVOICING_GOOGLE_ID_TOKEN)")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reg auth.Registration
			reg.Email, _ = cmd.Flags().GetString("email")
			reg.Password, _ = cmd.Flags().GetString("password")
			reg.FirstName, _ = cmd.Flags().GetString("first-name")
			reg.LastName, _ = cmd.Flags().GetString("last-name")
			reg.Phone, _ = cmd.Flags().GetString("phone")

			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Auth().Register(cmd.Context(), reg); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Account created. Sign in with `invoicing login`.")
			return nil
		},
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.Flags().String("phone", "", "Phone number")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Auth().Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}

			if !c.Auth().Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			if email, ok := c.Session().UserEmail(); ok {
				fmt.Fprintln(cmd.OutOrStdout(), email)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed in")
			return nil
		},
	}
}

func displayName(p *auth.Profile) string {
	switch {
	case p.Email != "":
		return p.Email
	case p.ID != nil:
		return "user " + p.ID.String()
	default:
		return "unknown user"
	}
}
