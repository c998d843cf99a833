package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/ardentid"
	"github.com/MrEthical07/ardentid/password"
	"github.com/spf13/cobra"
)

// newHashPasswordCmd prints an envelope for seeding records by hand. The
// plaintext is read from stdin so it stays out of shell history. The cost
// flags must match the server's password settings.
func newHashPasswordCmd() *cobra.Command {
	def := ardentid.DefaultConfig().Password
	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin with Argon2id",
		RunE: func(cmd *cobra.Command, args []string) error {
			hasher, err := password.NewArgon2(password.Config{
				Memory:      memory,
				Time:        iterations,
				Parallelism: parallelism,
			})
			if err != nil {
				return err
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password on stdin")
			}

			envelope, err := hasher.Hash(strings.TrimRight(line, "\r\n"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), envelope)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&memory, "memory-kb", def.Memory, "Argon2id memory in KB")
	cmd.Flags().Uint32Var(&iterations, "time", def.Time, "Argon2id iterations")
	cmd.Flags().Uint8Var(&parallelism, "parallelism", def.Parallelism, "Argon2id lanes")
	return cmd
}
