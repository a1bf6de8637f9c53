package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canopyhq/canopy/internal/observability"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage drive authorization",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize canopy against your drive account",
	Long: `Authorize canopy against your drive account.

Prints an authorization URL; visit it in a browser, grant access, and paste
the resulting code back. The token is cached on disk so subsequent commands
run without interaction.

Example:
  canopy auth login
  canopy auth login --credentials /path/to/credentials.json`,
	RunE: runAuthLogin,
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authorized account",
	RunE:  runAuthWhoami,
}

var authCredentialsFile string

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authWhoamiCmd)

	authCmd.PersistentFlags().StringVar(&authCredentialsFile, "credentials", "", "Override OAuth client credentials file")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if authCredentialsFile != "" {
		appConfig.Auth.CredentialsFile = authCredentialsFile
	}

	session, err := newSession(appConfig)
	if err != nil {
		observability.CLILogger.Error("Failed to load credentials", zap.Error(err))
		return exitError(foundry.ExitFileNotFound, "Failed to load credentials", err)
	}

	state := uuid.New().String()
	fmt.Println("Visit the following URL to authorize canopy:")
	fmt.Println()
	fmt.Println("  " + session.AuthURL(state))
	fmt.Println()
	fmt.Print("Enter the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to read authorization code", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return exitError(foundry.ExitInvalidArgument, "Empty authorization code", nil)
	}

	if err := session.Exchange(ctx, code); err != nil {
		observability.CLILogger.Error("Authorization failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Authorization failed", err)
	}

	fmt.Println("Authorization complete. Token saved to " + appConfig.Auth.TokenFile + ".")
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if authCredentialsFile != "" {
		appConfig.Auth.CredentialsFile = authCredentialsFile
	}

	client, err := newDriveClient(ctx, appConfig)
	if err != nil {
		observability.CLILogger.Error("Failed to create drive client", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to create drive client", err)
	}
	defer func() { _ = client.Close() }()

	name, email, err := client.About(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to fetch account info", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to fetch account info", err)
	}

	fmt.Printf("%s <%s>\n", name, email)
	return nil
}
