package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/kamekai/internal/mockserver"
)

type serveMockOptions struct {
	addr       string
	delay      time.Duration
	failStatus int
	debug      bool
}

func newServeMockCmd() *cobra.Command {
	opts := serveMockOptions{}
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run a local mock of the translation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeMock(cmd, &opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&opts.addr, "addr", mockserver.DefaultAddr, "Address to listen on")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "Delay added to every translation response")
	cmd.Flags().IntVar(&opts.failStatus, "fail-status", 0, "Answer every translation with this HTTP status (e.g. 500)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging (logs every request)")
	return cmd
}

func runServeMock(cmd *cobra.Command, opts *serveMockOptions) error {
	if opts.failStatus != 0 && (opts.failStatus < 400 || opts.failStatus > 599 || http.StatusText(opts.failStatus) == "") {
		return fmt.Errorf("--fail-status must be an HTTP error status, got %d", opts.failStatus)
	}
	if opts.delay < 0 {
		return fmt.Errorf("--delay must not be negative")
	}
	if err := setupLogging(opts.debug, ""); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Mock translation service on http://%s (Ctrl-C to stop)\n", opts.addr)
	return mockserver.New(mockserver.Options{
		Delay:      opts.delay,
		FailStatus: opts.failStatus,
	}).ListenAndServe(ctx, opts.addr)
}
