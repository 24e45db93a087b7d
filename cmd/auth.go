package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the API bearer token",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save a bearer token",
	Long: `Saves the bearer token sent to the lab API and the sandbox shell.

The token is read from --token, else from stdin.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the token in use",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authToken string

func init() {
	authLoginCmd.Flags().StringVar(&authToken, "token", "", "Bearer token")
	authCmd.AddCommand(authLoginCmd, authStatusCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

// tokenInfo is what the client can tell about a token without the
// server's keys.
type tokenInfo struct {
	Subject string
	Expires time.Time
	JWT     bool
}

func (i tokenInfo) expired(now time.Time) bool {
	return !i.Expires.IsZero() && now.After(i.Expires)
}

// inspectToken reads the claims of a JWT. The signature is not checked;
// the API does that.
func inspectToken(token string) tokenInfo {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return tokenInfo{}
	}
	info := tokenInfo{JWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.Expires = exp.Time
	}
	return info
}

func readToken(cmd *cobra.Command) (string, error) {
	if authToken != "" {
		return authToken, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return line, nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.Validation("token is empty")
	}

	info := inspectToken(token)
	if info.expired(time.Now()) {
		return errors.Validation("token expired at " + info.Expires.Local().Format(time.RFC1123))
	}

	if err := paths().WriteToken(token); err != nil {
		return err
	}

	if info.Subject != "" {
		logSuccess("Logged in as %s", info.Subject)
	} else {
		logSuccess("Token saved")
	}
	if !info.JWT {
		logWarning("Token is not a JWT; it will be sent as-is")
	}
	if os.Getenv(config.EnvToken) != "" || app.Default.Config.Token != "" {
		logWarning("A configured token (%s or config file) takes precedence over the saved one", config.EnvToken)
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	token, err := app.Default.Token()
	if err != nil {
		return err
	}
	if token == "" {
		logInfo("Not logged in. Run: labctl auth login")
		return nil
	}

	source := "saved token"
	if app.Default.Config.Token != "" {
		source = "configuration"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Token:   %s (%s)\n", maskToken(token), source)

	info := inspectToken(token)
	if !info.JWT {
		fmt.Fprintln(out, "Format:  opaque")
		return nil
	}
	if info.Subject != "" {
		fmt.Fprintf(out, "Subject: %s\n", info.Subject)
	}
	switch {
	case info.Expires.IsZero():
		fmt.Fprintln(out, "Expires: never")
	case info.expired(time.Now()):
		fmt.Fprintf(out, "Expires: %s (expired)\n", info.Expires.Local().Format("2006-01-02 15:04"))
	default:
		fmt.Fprintf(out, "Expires: %s\n", info.Expires.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	if err := paths().RemoveToken(); err != nil {
		return err
	}
	logSuccess("Logged out")
	return nil
}

// maskToken shows only the ends of a token.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + token[len(token)-4:]
}
