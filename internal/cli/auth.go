package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

func newLoginCmd(a *App) *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			p := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if passwordStdin {
				if password, err = p.Line(""); err != nil {
					return err
				}
			}
			username, password, err = p.Credentials(username, password)
			if err != nil {
				return err
			}
			if err := core.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			return a.writeSession(cmd, core.Session.Snapshot(), "Logged in as")
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	return cmd
}

func newRegisterCmd(a *App) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			p := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			for username == "" {
				if username, err = p.Line("Username: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = p.Line("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.Password("Password: "); err != nil {
					return err
				}
				again, err := p.Password("Repeat password: ")
				if err != nil {
					return err
				}
				if again != password {
					return errors.New("passwords do not match")
				}
			}
			if err := core.Register(cmd.Context(), username, email, password); err != nil {
				return err
			}
			return a.writeSession(cmd, core.Session.Snapshot(), "Registered and logged in as")
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			if err := core.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Long:  "Show the signed-in account. The token is verified against the backend unless --offline is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			if !core.Session.IsLoggedIn() {
				return errors.New("not logged in: run `reinsdesk login`")
			}
			if !offline {
				if err := core.Session.CheckAuth(cmd.Context()); err != nil {
					return err
				}
			}
			return a.writeSession(cmd, core.Session.Snapshot(), "Logged in as")
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "use the cached account without calling the backend")
	return cmd
}

// sessionView is the JSON shape of session output. The token is left out.
type sessionView struct {
	IsLoggedIn bool         `json:"isLoggedIn"`
	User       *models.User `json:"user,omitempty"`
}

func (a *App) writeSession(cmd *cobra.Command, s models.Session, prefix string) error {
	v := sessionView{IsLoggedIn: s.IsLoggedIn, User: s.User}
	return a.write(cmd, v, func(w io.Writer) error {
		if s.User == nil {
			_, err := fmt.Fprintln(w, prefix+" (account details unavailable)")
			return err
		}
		line := prefix + " " + s.User.Username
		if s.User.Email != "" {
			line += " <" + s.User.Email + ">"
		}
		_, err := fmt.Fprintln(w, line)
		return err
	})
}
