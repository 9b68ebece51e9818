package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"whop-scraper/session"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the Whop login stored in the system keychain",
	Long: `Manage the Whop email and password used for automated login.

Environment variables (WHOP_EMAIL or WHOP_USERNAME, and WHOP_PASSWORD)
always take precedence over the keychain.`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set [email]",
	Short: "Store an email and password in the keychain",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCredentialsSet,
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored credentials from the keychain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := (session.KeyringCredentials{}).Delete(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stored credentials removed.")
		return nil
	},
}

func init() {
	credentialsCmd.AddCommand(credentialsSetCmd, credentialsClearCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		fmt.Fprint(out, "Whop email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(out, "Whop password: ")
	password, err := readSecret(reader)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	creds := session.Credentials{Email: email, Password: password}
	if err := (session.KeyringCredentials{}).Store(creds); err != nil {
		return err
	}
	fmt.Fprintf(out, "Credentials for %s stored in the system keychain.\n", email)
	return nil
}

// readSecret reads without echo from a terminal, or a plain line otherwise.
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return strings.TrimSpace(string(b)), err
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
