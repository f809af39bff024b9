package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/hrdesk/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		employeeID string
		role       string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token",
		Long:  "Issue a signed access token using HRDESK_JWT_SECRET. Employee tokens are bound to one employee id.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("HRDESK_JWT_SECRET")
			if secret == "" {
				return errors.New("HRDESK_JWT_SECRET is not set")
			}

			if role == auth.RoleEmployee && employeeID == "" {
				return errors.New("--employee is required for employee tokens")
			}

			tok, err := auth.IssueToken(secret, employeeID, role, ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	cmd.Flags().StringVar(&employeeID, "employee", "", "Employee id the token is bound to")
	cmd.Flags().StringVar(&role, "role", auth.RoleEmployee, "Token role (employee or hr)")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")

	return cmd
}
