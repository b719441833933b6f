package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/config"
	"github.com/oukeidos/kamekai/internal/language"
	"github.com/oukeidos/kamekai/internal/logger"
	"github.com/oukeidos/kamekai/internal/render"
	"github.com/oukeidos/kamekai/internal/screen"
	"github.com/oukeidos/kamekai/internal/session"
	"github.com/oukeidos/kamekai/internal/translation"
)

type translateOptions struct {
	token       string
	endpoint    string
	jsonOutput  bool
	expand      bool
	langs       []string
	noProgress  bool
	logFilePath string
	debug       bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	cmd.Flags().StringVar(&opts.token, "token", "", "Bearer credential (overrides KAMEKAI_TOKEN and the stored session)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Translation service base URL (overrides KAMEKAI_ENDPOINT)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the raw service response as JSON")
	cmd.Flags().StringSliceVarP(&opts.langs, "lang", "l", nil, "Only show these languages (name or tag, e.g. ja, zh-CN)")
	cmd.Flags().BoolVarP(&opts.expand, "expand", "e", false, "Show grammar notes and examples for every sentence")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Do not show the progress line on stderr")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(opts.debug || cfg.Debug, opts.logFilePath); err != nil {
		return err
	}
	if opts.endpoint != "" {
		cfg.Endpoint = strings.TrimRight(strings.TrimSpace(opts.endpoint), "/")
	}
	if err := cfg.ValidateEndpoint(); err != nil {
		return err
	}

	langs, err := parseLanguages(opts.langs)
	if err != nil {
		return err
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		_ = cmd.Usage()
		return fmt.Errorf("no text to translate")
	}

	ctx, stop := signalContext()
	defer stop()

	credential, source, err := resolveToken(ctx, cfg, opts.token)
	if err != nil {
		return err
	}
	logger.Debug("Using credential", "source", source, "endpoint", cfg.Endpoint)

	resp, cards, err := translate(ctx, cmd, cfg, credential, text, opts)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled")
			return nil
		}
		return err
	}
	return printResult(cmd.OutOrStdout(), resp, cards, opts.jsonOutput, langs)
}

func parseLanguages(inputs []string) ([]language.Language, error) {
	var langs []language.Language
	seen := make(map[string]bool)
	for _, in := range inputs {
		lang, ok := language.GetLanguage(in)
		if !ok {
			names := make([]string, 0, len(language.Languages))
			for _, l := range language.GetSupportedLanguages() {
				names = append(names, l.Name)
			}
			return nil, fmt.Errorf("unsupported language %q (supported: %s)", in, strings.Join(names, ", "))
		}
		if !seen[lang.Code] {
			seen[lang.Code] = true
			langs = append(langs, lang)
		}
	}
	return langs, nil
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return confirmerFor(cmd).ReadText()
}

// translate runs one submission through the screen controller and returns
// the response and its cards once the pipeline settles.
func translate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, credential, text string, opts *translateOptions) (*translation.Response, []screen.Card, error) {
	pipeline := translation.NewPipeline(translation.NewClient(cfg.Endpoint))
	ctrl := screen.NewController(session.Fixed{Token: credential}, pipeline)
	defer ctrl.Close()

	ctrl.SetText(text)
	done := ctrl.Submit(ctx)
	if done == nil {
		return nil, nil, fmt.Errorf("no text to translate")
	}

	stopProgress := func() {}
	if !opts.noProgress && !opts.jsonOutput && isTerminal(int(os.Stderr.Fd())) {
		stopProgress = startProgress(cmd.ErrOrStderr())
	}

	var st translation.State
	select {
	case st = <-done:
	case <-ctx.Done():
		stopProgress()
		return nil, nil, ctx.Err()
	}
	stopProgress()

	if st.Status != translation.StatusSuccess {
		logger.Debug("Translation failed", "error", st.Err)
		if apperrors.RequiresSignIn(st.Err) {
			return nil, nil, fmt.Errorf("%s (run `kamekai login`)", st.Message)
		}
		return nil, nil, errors.New(st.Message)
	}
	if opts.expand {
		for _, c := range ctrl.Cards() {
			ctrl.ToggleExpanded(c.Index)
		}
	}
	return st.Response, ctrl.Cards(), nil
}

func printResult(out io.Writer, resp *translation.Response, cards []screen.Card, jsonOutput bool, langs []language.Language) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	}
	return render.Cards(out, cards, terminalWidth(), langs...)
}

// startProgress draws the loading indicator on a single terminal line until
// the returned function is called.
func startProgress(w io.Writer) func() {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		last := screen.Run(ctx, func(p screen.Progress) {
			fmt.Fprintf(w, "\r\033[K%3.0f%%  %s", p.Percent, p.Message())
		})
		fmt.Fprintf(w, "\r\033[K%3.0f%%\n", last.Complete().Percent)
	}()
	return func() {
		cancel()
		<-finished
	}
}
