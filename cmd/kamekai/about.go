package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/kamekai/internal/language"
	"github.com/oukeidos/kamekai/internal/version"
)

const projectURL = "https://github.com/oukeidos/kamekai"

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show what kamekai does and where it lives",
		Run: func(cmd *cobra.Command, args []string) {
			names := make([]string, 0, len(language.Targets))
			for _, lang := range language.Targets {
				names = append(names, lang.Name)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, version.Info())
			fmt.Fprintf(out, "Translates English text sentence by sentence into %s,\n", strings.Join(names, " and "))
			fmt.Fprintln(out, "with pronunciation, grammar notes and example phrases.")
			fmt.Fprintln(out, projectURL)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
