package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/modal"
)

func openCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "open new|edit|delete <url>",
		Short: "Fetch a modal fragment",
		Long: `Fetch the modal fragment of a new, edit or delete affordance and print
it. The request method is the one configured for the intent.

Examples:
  homectl open new /device/new
  homectl open edit /device/1/edit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := modal.ParseIntent(args[0])
			if err != nil {
				return err
			}
			console, err := flags.newConsole(cmd)
			if err != nil {
				return err
			}
			defer console.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), settleTimeout)
			defer cancel()

			doc := console.NewView()
			doc.Add(dom.NewElement("affordance").
				SetAttr(dom.AttrRole, string(intent)).
				SetAttr(dom.AttrHref, args[1]))
			if err := console.MountView(doc); err != nil {
				return err
			}
			act, err := console.Click(ctx, "affordance")
			if err != nil {
				return err
			}
			outcome, err := act.Wait(ctx)
			if err != nil {
				return fmt.Errorf("%s %s: %s: %w", intent, args[1], outcome, err)
			}

			holder := doc.ByID(console.Config().Modal.Container)
			fmt.Fprintln(cmd.OutOrStdout(), holder.InnerHTML())
			return nil
		},
	}
}
