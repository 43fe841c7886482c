package main

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/aatumaykin/cronkeeper/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	var (
		generate bool
		cost     int
	)
	hashCmd := &cobra.Command{
		Use:   "hash [token]",
		Short: "Print the bcrypt hash to put in auth.tokens",
		Long: `Hash a token given as an argument or on stdin. With --generate a random
token is created and printed together with its hash.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			switch {
			case generate:
				token = rand.Text()
				fmt.Fprintf(cmd.OutOrStdout(), "token: %s\n", token)
			case len(args) == 1:
				token = args[0]
			default:
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				token = strings.TrimSpace(line)
			}

			hash, err := auth.HashToken(token, cost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hash: %s\n", hash)
			return nil
		},
	}
	hashCmd.Flags().BoolVarP(&generate, "generate", "g", false, "Generate a random token")
	hashCmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	cmd.AddCommand(hashCmd)
	return cmd
}
