package main

// usageSections follows the Usage lines of every template.
const usageSections = `
{{if .HasAvailableSubCommands}}Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}  {{rpad .Name .NamePadding }} {{.Short}}
{{end}}{{end}}{{end}}
{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}
{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}
{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

const subcommandUsageTemplate = `Usage:
  {{.UseLine}}
` + usageSections

// The root command translates by default, so its usage leads with that.
const rootUsageTemplate = `Usage:
  kamekai [text...] [flags]
  echo "text" | kamekai [flags]
{{if .HasAvailableSubCommands}}  {{.CommandPath}} [command]
{{end}}` + usageSections

// token prints the stored credential and also has a decode subcommand.
const tokenUsageTemplate = `Usage:
  {{.UseLine}}
  {{.CommandPath}} [command]
` + usageSections
