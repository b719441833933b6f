package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/render"
	"github.com/oukeidos/kamekai/internal/token"
)

type tokenOptions struct {
	decode bool
	access bool
}

func newTokenCmd() *cobra.Command {
	opts := tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the ID token of the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, &opts)
		},
	}
	cmd.SetUsageTemplate(tokenUsageTemplate)
	cmd.Flags().BoolVarP(&opts.decode, "decode", "d", false, "Show the decoded header and payload instead of the raw token")
	cmd.Flags().BoolVar(&opts.access, "access", false, "Print the access token instead of the ID token")
	cmd.AddCommand(newTokenDecodeCmd())
	return cmd
}

func newTokenDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [jwt]",
		Short: "Decode a JWT without verifying it (prompts when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenDecode(cmd, args)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func runToken(cmd *cobra.Command, opts *tokenOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	m, err := restoreSession(ctx, cfg)
	if err != nil {
		return err
	}
	s := m.Snapshot()
	if s.User == nil {
		return fmt.Errorf("%s: run `kamekai login` first", apperrors.MsgCredentialMissing)
	}
	raw := s.User.IDToken
	if opts.access {
		raw = m.AccessToken()
	}
	if raw == "" {
		return fmt.Errorf("%s", apperrors.MsgCredentialMissing)
	}
	return render.Token(cmd.OutOrStdout(), raw, opts.decode)
}

func runTokenDecode(cmd *cobra.Command, args []string) error {
	var raw string
	if len(args) == 1 {
		raw = args[0]
	} else {
		var err error
		raw, err = promptForToken("Token: ", cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("error reading token: %w", err)
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("a token is required")
	}
	if err := render.Token(cmd.OutOrStdout(), raw, true); err != nil {
		return err
	}
	if !token.Decode(raw).Valid() {
		return apperrors.Decode(nil)
	}
	return nil
}
