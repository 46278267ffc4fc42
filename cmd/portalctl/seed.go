package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ankur-foundation/ngo-portal/internal/repository"
	"github.com/ankur-foundation/ngo-portal/internal/seed"
	"github.com/ankur-foundation/ngo-portal/internal/utils"
)

func newSeedCmd() *cobra.Command {
	var (
		file string
		cost int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, committees, accounts and transactions from a YAML file",
		Long: `Load demo data from a YAML seed file.

Users and committees that already exist are reused, so the command can be
re-run; accounts and transactions are always added.

Examples:
  portalctl seed --file configs/seed.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			stores := seed.Stores{
				Users:        repository.NewUserRepo(db),
				Committees:   repository.NewCommitteeRepo(db),
				Accounts:     repository.NewAccountRepo(db),
				Transactions: repository.NewTransactionRepo(db),
			}
			rep, err := seed.Apply(cmd.Context(), stores, utils.NewHasher(cost), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d committees, %d accounts, %d transactions\n",
				rep.Users, rep.Committees, rep.Accounts, rep.Transactions)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "configs/seed.yaml", "seed file")
	cmd.Flags().IntVar(&cost, "cost", utils.MinBcryptCost, "bcrypt cost for seeded passwords")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1024))
				if err != nil {
					return err
				}
				plain = strings.TrimRight(string(b), "\r\n")
			}
			if plain == "" {
				return errors.New("empty password")
			}
			hash, err := utils.NewHasher(cost).Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", utils.MinBcryptCost, "bcrypt cost (never below the minimum)")
	return cmd
}
