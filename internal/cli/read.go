package cli

import (
	"github.com/spf13/cobra"
)

// IDOptions holds flags for commands addressing a single id.
type IDOptions struct {
	*RootOptions
	ID string
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IDOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a thing by id",
		Long: `Delete a thing by id.

By default a present thing is removed and ok=true is printed; an absent id
prints ok=false. With --legacy-delete the precondition is inverted: a present
thing is kept (ok=false) and an absent id reports ok=true.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closer, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			ok, err := svc.Delete(ctx, opts.ID)
			if err != nil {
				return classify("delete", err)
			}
			return writeResult(cmd.OutOrStdout(), "delete", opts.ID, ok)
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "thing id")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IDOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a stored thing",
		Long: `Print a stored thing as indented JSON.

An unknown id is not an error: a result line with ok=false is printed and the
command exits 0.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closer, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			t, found, err := svc.GetByID(ctx, opts.ID)
			if err != nil {
				return classify("get", err)
			}
			if !found {
				return writeResult(cmd.OutOrStdout(), "get", opts.ID, false)
			}
			return writeThing(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "thing id")

	return cmd
}
