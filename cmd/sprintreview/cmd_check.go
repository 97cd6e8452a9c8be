package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// runCheck verifies that every known setting has a value.
func runCheck(cmd *cobra.Command, args []string) error {
	if err := requireSettings(cmd.ErrOrStderr()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("configuration complete"))
	return nil
}
