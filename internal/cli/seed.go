package cli

import (
	"fmt"

	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/seed"

	"github.com/spf13/cobra"
)

type seedOptions struct {
	File  string
	Reset bool
}

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	so := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo branches, users and products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := seed.Load(so.File)
			if err != nil {
				return err
			}

			env, closeDB, err := opts.open()
			if err != nil {
				return err
			}
			defer closeDB()

			sum, err := seed.Apply(cmd.Context(), env.db, auth.NewHasher(env.cfg), data, so.Reset, env.logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "branches: %d, users: %d, products: %d, skipped: %d\n",
				sum.Branches, sum.Users, sum.Products, sum.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&so.File, "file", "", "seed YAML file (defaults to the built-in data set)")
	cmd.Flags().BoolVar(&so.Reset, "reset", false, "delete all sales, products, users and branches first")

	return cmd
}
