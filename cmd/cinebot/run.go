package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Piravision/Votaciones/internal/api"
	"github.com/Piravision/Votaciones/internal/daemon"
	"github.com/Piravision/Votaciones/internal/history"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/metadata"
	"github.com/Piravision/Votaciones/internal/notifications"
	"github.com/Piravision/Votaciones/internal/poller"
	"github.com/Piravision/Votaciones/internal/preflight"
	"github.com/Piravision/Votaciones/internal/publish"
	"github.com/Piravision/Votaciones/internal/tmdb"
	"github.com/Piravision/Votaciones/internal/votecmd"
)

func runLoop(cmd *cobra.Command, cmdCtx *commandContext) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateLookup(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Info("preflight ok", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failure",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "the affected step will log errors each tick"))
	}

	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		return fmt.Errorf("tmdb client: %w", err)
	}
	renderer, err := cmdCtx.renderer()
	if err != nil {
		return err
	}
	store, err := cmdCtx.store(logger)
	if err != nil {
		return err
	}

	deps := poller.Deps{
		Store:     store,
		Resolver:  metadata.NewResolver(client, cfg.TMDB.ImageBaseURL, logger),
		Page:      renderer,
		Publisher: publish.New(cfg, logger),
	}
	if notifier := notifications.NewService(cfg); notifier.Enabled() {
		deps.Notifier = notifier
	}
	archive, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		logging.WarnWithContext(logger, "history archive unavailable", "history_failure",
			logging.Error(err),
			logging.String("path", cfg.Paths.HistoryDB),
			logging.String(logging.FieldImpact, "closed sessions are kept only in the monthly calendar"))
	} else {
		defer archive.Close()
		deps.History = archive
	}

	loop, err := poller.New(cfg, deps, logger)
	if err != nil {
		return err
	}

	server := api.New(cfg.API.Bind, store, votecmd.New(cfg, store, renderer, logger), logger)
	d, err := daemon.New(cfg, loop, server, logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

func newRegisterVoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "register_vote <voter> <score>",
		Short: "Register one vote for the title playing now",
		Long: "Registers a single vote and prints the reply for the chat integration. The same\n" +
			"reply is written to paths.vote_response_file. The exit status is 0 whenever a reply\n" +
			"was produced, including rejected votes.",
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.fileLogger()
			store, err := ctx.store(logger)
			if err != nil {
				return err
			}
			var page votecmd.Page
			if renderer, err := ctx.renderer(); err != nil {
				logger.Warn("calendar template unavailable; vote will not re-render", logging.Error(err))
			} else {
				page = renderer
			}

			handler := votecmd.New(cfg, store, page, logger)
			outcome := handler.Handle(cmd.Context(), args[0], args[1])
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
			return nil
		},
	}
}
