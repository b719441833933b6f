package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/kamekai/internal/cleanup"
	"github.com/oukeidos/kamekai/internal/logger"
	"github.com/oukeidos/kamekai/internal/session"
)

const receiverShutdownTimeout = 5 * time.Second

type loginOptions struct {
	noBrowser bool
	timeout   time.Duration
	debug     bool
}

func newLoginCmd() *cobra.Command {
	opts := loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with the identity provider in your browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, &opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Print the sign-in URL instead of opening a browser")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "How long to wait for the browser sign-in")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(opts.debug || cfg.Debug, ""); err != nil {
		return err
	}
	if err := cfg.ValidateIdentity(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	loginCfg := *cfg
	loginCfg.AutomaticSilentRenew = false
	m := session.NewManager(&loginCfg, provider, newStore(cfg), newNavigator(cmd.ErrOrStderr(), opts.noBrowser))

	rcv, err := session.NewLoopbackReceiver(m, cfg.RedirectURI)
	if err != nil {
		return err
	}
	if err := rcv.Start(); err != nil {
		return err
	}
	cleanup.Register("callback listener", shutdownHook(receiverShutdownTimeout, rcv.Shutdown))

	if err := m.SignIn(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Waiting for the browser sign-in to finish...")

	waitCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	s, err := m.AwaitSignIn(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("sign-in timed out after %s", opts.timeout)
		}
		logger.Warn("Sign-in canceled")
		return nil
	}
	if s.Status != session.StatusAuthenticated {
		if s.Err != nil {
			return s.Err
		}
		return fmt.Errorf("sign-in did not complete")
	}

	email := "unknown account"
	if s.User != nil && s.User.Email != "" {
		email = s.User.Email
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", email)
	if !cfg.Keychain {
		fmt.Fprintln(cmd.OutOrStdout(), "Keychain storage is disabled (KAMEKAI_KEYCHAIN=false); the session ends with this process.")
	}
	return nil
}

type logoutOptions struct {
	yes       bool
	noBrowser bool
}

func newLogoutCmd() *cobra.Command {
	opts := logoutOptions{}
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session and end the provider session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, &opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Sign out without asking")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Print the logout URL instead of opening a browser")
	return cmd
}

func runLogout(cmd *cobra.Command, opts *logoutOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ok, err := confirmerFor(cmd).Confirm("Sign out of kamekai?", opts.yes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
		return nil
	}

	m := session.NewManager(cfg, nil, newStore(cfg), newNavigator(cmd.ErrOrStderr(), opts.noBrowser))
	if err := m.SignOut(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}
