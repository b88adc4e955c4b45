package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func NewLoginCmd(deps *Dependencies) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := credentials(cmd, deps, email)
			if err != nil {
				return err
			}

			client, _ := deps.api(false)

			token, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			deps.Config.Email = email
			deps.Config.Token = token
			if err := deps.Config.Save(deps.ConfigPath); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)

			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")

	return cmd
}

func NewRegisterCmd(deps *Dependencies) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := credentials(cmd, deps, email)
			if err != nil {
				return err
			}

			client, _ := deps.api(false)

			if _, err := client.Register(cmd.Context(), email, password); err != nil {
				return err
			}

			token, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			deps.Config.Email = email
			deps.Config.Token = token
			if err := deps.Config.Save(deps.ConfigPath); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s\n", email)

			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")

	return cmd
}

// credentials prompts for whatever was not passed as a flag. The password is
// read without echo when stdin is a terminal.
func credentials(cmd *cobra.Command, deps *Dependencies, email string) (string, string, error) {
	in := bufio.NewReader(deps.In)
	out := cmd.ErrOrStderr()

	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(out, "Password: ")

	var password string
	if f, ok := deps.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		password = string(b)
	} else {
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}

	return email, password, nil
}
