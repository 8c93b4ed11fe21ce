package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jobapply-backend/internal/applications"
	"jobapply-backend/internal/auth"
	"jobapply-backend/internal/bootstrap"
	"jobapply-backend/internal/dispatch"
	"jobapply-backend/internal/gmail"
	"jobapply-backend/internal/history"
	"jobapply-backend/internal/scrape"
	"jobapply-backend/internal/sessions"
	"jobapply-backend/internal/shared/apperr"
	"jobapply-backend/internal/shared/config"
	localstore "jobapply-backend/internal/shared/storage/object/local"
)

// cliTokenKey names the Gmail token used by every CLI invocation.
const cliTokenKey = "cli"

type inputs struct {
	resume  string
	job     string
	jobURL  string
	to      string
	verbose bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "applyctl",
		Short:         "Analyze job matches and draft or send application emails",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(applications.ActionAnalyze, "Compare a resume with a job description"),
		newRunCmd(applications.ActionDraft, "Compose the application email and save it as a Gmail draft"),
		newRunCmd(applications.ActionSend, "Compose the application email and send it through Gmail"),
		newConnectCmd(),
		newHistoryCmd(),
	)
	return root
}

func newRunCmd(action applications.Action, short string) *cobra.Command {
	var in inputs
	cmd := &cobra.Command{
		Use:   string(action),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, action, in)
		},
	}
	cmd.Flags().StringVar(&in.resume, "resume", "", "Resume file (PDF, DOCX or text)")
	cmd.Flags().StringVar(&in.job, "job", "", "Job description text file")
	cmd.Flags().StringVar(&in.jobURL, "job-url", "", "Job posting URL to fetch instead of --job")
	cmd.Flags().BoolVarP(&in.verbose, "verbose", "v", false, "Print the analysis for draft and send")
	_ = cmd.MarkFlagRequired("resume")
	if action != applications.ActionAnalyze {
		cmd.Flags().StringVar(&in.to, "to", "", "Recipient email address")
		_ = cmd.MarkFlagRequired("to")
	}
	return cmd
}

func runAction(cmd *cobra.Command, action applications.Action, in inputs) error {
	if in.job == "" && in.jobURL == "" {
		return errors.New("one of --job or --job-url is required")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Load()
	workDir, err := os.MkdirTemp("", "applyctl-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	svc, err := newService(ctx, cfg, workDir)
	if err != nil {
		return err
	}

	ac, err := svc.CreateSession(ctx)
	if err != nil {
		return err
	}
	resume, err := os.Open(in.resume)
	if err != nil {
		return fmt.Errorf("open resume: %w", err)
	}
	defer resume.Close()
	if _, err := svc.UploadResume(ctx, ac.ID, filepath.Base(in.resume), resume); err != nil {
		return err
	}

	jobText := ""
	if in.job != "" {
		raw, err := os.ReadFile(in.job)
		if err != nil {
			return fmt.Errorf("read job description: %w", err)
		}
		jobText = string(raw)
	}
	if _, err := svc.SetJobDescription(ctx, ac.ID, jobText, in.jobURL); err != nil {
		return err
	}
	if in.to != "" {
		if _, err := svc.SetRecipient(ctx, ac.ID, in.to); err != nil {
			return err
		}
	}

	res, err := svc.Run(ctx, ac.ID, action)
	printResult(cmd, action, res, in.verbose)
	if err != nil {
		return explain(err)
	}
	return nil
}

// newService assembles the same pipeline the API server runs, scoped to one
// invocation: sessions in memory, the resume copied under workDir and the
// history kept in the configured JSON file.
func newService(ctx context.Context, cfg config.Config, workDir string) (*applications.Service, error) {
	gen, err := bootstrap.NewGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := localstore.New(workDir)
	oauthCfg := auth.GmailOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	provider := gmail.NewProvider(oauthCfg, auth.NewFileTokenStore(cfg.GmailTokenDir))

	// The CLI runs on the user's own machine, so intranet postings stay reachable.
	return &applications.Service{
		Sessions:     sessions.NewMemoryStore(0),
		Store:        store,
		HistoryRepo:  history.NewFileRepo(cfg.HistoryFile),
		Generator:    gen,
		Fetcher:      scrape.NewFetcher(cfg.ScrapeTimeout, cfg.ScrapeMaxChars, scrape.WithPrivateNetworks()),
		Senders:      fixedKey{provider: provider, key: cliTokenKey},
		Dispatcher:   bootstrap.NewDispatcher(cfg, store),
		HistoryLimit: cfg.HistoryLimit,
	}, nil
}

// fixedKey resolves every session to the single CLI token.
type fixedKey struct {
	provider *gmail.Provider
	key      string
}

func (f fixedKey) SenderFor(ctx context.Context, _ string) (dispatch.Sender, error) {
	return f.provider.SenderFor(ctx, f.key)
}

func printResult(cmd *cobra.Command, action applications.Action, res applications.RunResult, verbose bool) {
	out := cmd.OutOrStdout()
	if res.Analysis != nil && (action == applications.ActionAnalyze || verbose) {
		fmt.Fprintln(out, res.Analysis.Text)
		fmt.Fprintln(out)
	}
	if res.Email != nil {
		fmt.Fprintf(out, "Subject: %s\n\n%s\n\n", res.Email.Subject, res.Email.Body)
		if res.Email.Templated {
			fmt.Fprintln(out, "(generation unavailable; template email used)")
		}
	}
	if res.Receipt != nil {
		verb := "Draft created"
		if res.Receipt.Action == dispatch.ActionSend {
			verb = "Email sent"
		}
		fmt.Fprintf(out, "%s: %s\n", verb, res.Receipt.ID)
	}
}

func explain(err error) error {
	if errors.Is(err, apperr.ErrNotConnected) {
		return fmt.Errorf("%w (run `applyctl connect` first)", err)
	}
	return err
}
