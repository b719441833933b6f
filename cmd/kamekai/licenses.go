package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/kamekai/internal/licenses"
)

func newLicensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licenses",
		Short: "Show third-party license notices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printNotices(cmd)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func printNotices(cmd *cobra.Command) error {
	text := licenses.NoticesText()
	if text == "" {
		return fmt.Errorf("embedded THIRD_PARTY_NOTICES is empty")
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, text); err != nil {
		return err
	}
	for _, m := range licenses.Modules() {
		if _, err := fmt.Fprintf(out, "%s %s\n  License: %s\n  %s\n", m.Path, m.Version, m.License, m.URL()); err != nil {
			return err
		}
	}
	return nil
}
