// login.go implements the "csvstats login" and "csvstats logout" commands.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with your email and password. The password is read from the
terminal without echo, or from standard input with --password-stdin.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var (
	emailFlag         string
	passwordStdinFlag bool
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool { return ui.IsTerminal(os.Stdin) }

func init() {
	loginCmd.Flags().StringVar(&emailFlag, "email", "", "Account email")
	loginCmd.Flags().BoolVar(&passwordStdinFlag, "password-stdin", false, "Read the password from standard input")
}

func runLogin(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	email := strings.TrimSpace(emailFlag)
	if email == "" && !passwordStdinFlag && stdinIsTerminal() {
		fmt.Fprint(out, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	password, err := readPassword(cmd, in)
	if err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	resp, err := e.store.Login(commandContext(cmd), email, password)
	if err != nil {
		return errors.New(session.LoginErrorMessage(err))
	}

	fmt.Fprintf(out, "Logged in as %s\n", resp.Email)
	return nil
}

// readPassword reads one line from stdin with --password-stdin, otherwise
// prompts on the terminal without echo.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if passwordStdinFlag {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	if !stdinIsTerminal() {
		return "", errors.New("no terminal for the password prompt; use --password-stdin")
	}

	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	email := e.store.CurrentEmail()
	e.store.Logout()

	if email == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	if e.cache != nil {
		if err := e.cache.Clear(email); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: clearing cached history: %v\n", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", email)
	return nil
}
