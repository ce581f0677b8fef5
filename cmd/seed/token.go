package main

import (
	"fmt"

	"github.com/affiliate-next/internal/service"

	"github.com/spf13/cobra"
)

var tokenOperator string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发管理端 JWT",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		tokens := service.NewAdminTokenService(cfg.JWT.SecretKey, cfg.JWT.ExpireHours)
		token, expiresAt, err := tokens.GenerateToken(tokenOperator)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "ops", "令牌所属操作人")
}
