package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/auth"
	"github.com/oukeidos/kamekai/internal/translation"
)

type statusOptions struct {
	endpoint string
}

func newStatusCmd() *cobra.Command {
	opts := statusOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session and whether the translation service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, &opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Translation service base URL (overrides KAMEKAI_ENDPOINT)")
	return cmd
}

func runStatus(cmd *cobra.Command, opts *statusOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	out := cmd.OutOrStdout()

	stored, err := newStore(cfg).Load()
	switch {
	case err == nil && stored.Email != "":
		fmt.Fprintf(out, "Session: Found for %s (source=%s)\n", stored.Email, sourceKeychain)
	case err == nil:
		fmt.Fprintf(out, "Session: Found (source=%s)\n", sourceKeychain)
	case errors.Is(err, auth.ErrNoSession):
		fmt.Fprintln(out, "Session: Not Found (run `kamekai login`)")
	default:
		fmt.Fprintf(out, "Session: Unavailable (%v)\n", err)
	}
	if _, ok := getEnvToken(); ok {
		fmt.Fprintf(out, "Token: Found (source=%s)\n", sourceEnv)
	}
	if err := cfg.ValidateIdentity(); err != nil {
		fmt.Fprintf(out, "Identity provider: %s\n", apperrors.PublicMessage(err))
	} else {
		fmt.Fprintf(out, "Identity provider: %s\n", cfg.Authority)
	}

	if err := cfg.ValidateEndpoint(); err != nil {
		fmt.Fprintf(out, "Endpoint: %s\n", apperrors.PublicMessage(err))
		return nil
	}
	ctx, stop := signalContext()
	defer stop()
	client := translation.NewClient(cfg.Endpoint)
	if err := client.Health(ctx); err != nil {
		state := "unhealthy"
		if apperrors.IsTransport(err) {
			state = "unreachable"
		}
		fmt.Fprintf(out, "Endpoint: %s (%s: %s)\n", client.Endpoint(), state, apperrors.PublicMessage(err))
		return nil
	}
	fmt.Fprintf(out, "Endpoint: %s (healthy)\n", client.Endpoint())
	return nil
}
