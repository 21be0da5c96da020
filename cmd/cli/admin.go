package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/affiliateboard/backend/internal/auth"
	"github.com/affiliateboard/backend/internal/config"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Admin credential helpers",
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash to use as ADMIN_PASSWORD",
	Long: `Print a bcrypt hash of the given password. ADMIN_PASSWORD accepts the hash
in place of the plain password. Without an argument the password is read from
the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fmt.Println(string(hash))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin API token from the local JWT_SECRET",
	Long: `Issue a signed admin token for scripting the admin API. Send it as
"Authorization: Bearer <token>".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		token, err := auth.NewService(cfg.Admin).IssueToken()
		if err != nil {
			return err
		}
		if output == "json" {
			return printResult(map[string]any{"token": token.Value, "expires_at": token.ExpiresAt})
		}
		fmt.Println(token.Value)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(hashPasswordCmd)
	adminCmd.AddCommand(tokenCmd)
}
