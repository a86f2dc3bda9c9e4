package cli

import (
	"context"

	"github.com/spf13/cobra"

	"thingstore/thing"
)

// WriteOptions holds flags for the create and update commands.
type WriteOptions struct {
	*RootOptions
	ID     string
	Name   string
	Labels map[string]string
}

func (o *WriteOptions) thing() *thing.Thing {
	return &thing.Thing{ID: o.ID, Name: o.Name, Labels: o.Labels}
}

func addWriteFlags(cmd *cobra.Command, opts *WriteOptions) {
	cmd.Flags().StringVar(&opts.ID, "id", "", "thing id")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "thing name")
	cmd.Flags().StringToStringVarP(&opts.Labels, "label", "l", nil, "label as key=value, repeatable")
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a thing unless its id is taken",
		Long: `Store a thing unless its id is taken.

Prints ok=false when a thing with the same id already exists; the stored
record is left untouched.

Example:
  thingctl create --id abc --name widget --label team=core`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, opts, "create", (*thing.Service).Create)
		},
	}
	addWriteFlags(cmd, opts)

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace a stored thing",
		Long: `Replace a stored thing.

Prints ok=false when no thing with the id exists; nothing is created.

Example:
  thingctl update --id abc --name gadget`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, opts, "update", (*thing.Service).Update)
		},
	}
	addWriteFlags(cmd, opts)

	return cmd
}

func runWrite(cmd *cobra.Command, opts *WriteOptions, op string,
	call func(*thing.Service, context.Context, *thing.Thing) (bool, error)) error {
	ctx := cmd.Context()
	svc, closer, err := opts.openService(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	ok, err := call(svc, ctx, opts.thing())
	if err != nil {
		return classify(op, err)
	}
	return writeResult(cmd.OutOrStdout(), op, opts.ID, ok)
}
