package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/homectl"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/stepper"
)

// settleTimeout bounds how long a command waits for an interaction.
const settleTimeout = time.Minute

func stepCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "step <device-id> plus|minus",
		Short: "Increment or decrement a device value",
		Long: `Increment or decrement a device value within its bounds.

The device's current state is fetched first. At a boundary nothing is
sent. A rejected update is reverted and reported.

Examples:
  homectl step 1 plus
  homectl step 2 minus`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := stepper.ParseAction(args[1])
			if err != nil {
				return err
			}
			return runDevice(cmd, flags, args[0], action.String())
		},
	}
}

func toggleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <device-id>",
		Short: "Switch a device on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevice(cmd, flags, args[0], homectl.RoleToggle)
		},
	}
}

// runDevice loads the device row, activates one of its widgets and
// reports the settled state.
func runDevice(cmd *cobra.Command, flags *globalFlags, device, role string) error {
	console, err := flags.newConsole(cmd)
	if err != nil {
		return err
	}
	defer console.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), settleTimeout)
	defer cancel()

	doc, err := console.LoadDevice(ctx, device)
	if err != nil {
		return err
	}
	if err := console.MountView(doc); err != nil {
		return err
	}
	act, err := console.Click(ctx, homectl.DeviceElementID(device, role))
	if err != nil {
		return err
	}
	outcome, err := act.Wait(ctx)
	if err != nil {
		return fmt.Errorf("device %s: %s: %w", device, outcome, err)
	}

	out := cmd.OutOrStdout()
	if role == homectl.RoleToggle {
		on := doc.ByID(homectl.DeviceElementID(device, role)).AttrOr(dom.AttrOn, "")
		success(out, "device %s: on=%s (%s)", device, on, outcome)
		return nil
	}
	value := doc.ByID(homectl.DeviceElementID(device, "value")).AttrOr(dom.AttrValue, "")
	if outcome == stepper.NoOp.String() {
		warn(out, "device %s: value %s already at boundary", device, value)
		return nil
	}
	success(out, "device %s: value %s (%s)", device, value, outcome)
	return nil
}
