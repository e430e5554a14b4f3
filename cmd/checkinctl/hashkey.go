package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PittChallenge/pittchallenge.com/pkg/utils"
)

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Print a bcrypt hash of an API key for WRITE_API_KEY or READ_API_KEY",
		Long: `Print a bcrypt hash of an API key. The hash can be configured in place of the
plain key; requests still send the plain value. With no argument the key is read
from the first line of stdin, which keeps it out of shell history.

Examples:
  checkinctl hash-key s3cret
  echo s3cret | checkinctl hash-key`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no key given")
				}
				key = strings.TrimRight(line, "\r\n")
			}
			if key == "" {
				return errors.New("key is empty")
			}
			hash, err := utils.HashKey(key)
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
