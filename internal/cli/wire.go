package cli

import (
	"log/slog"

	"github.com/marcin-skalski/mondrian/internal/config"
	"github.com/marcin-skalski/mondrian/internal/daemon"
	"github.com/marcin-skalski/mondrian/internal/fetch"
	"github.com/marcin-skalski/mondrian/internal/gerrit"
	"github.com/marcin-skalski/mondrian/internal/jenkins"
	"github.com/marcin-skalski/mondrian/internal/nudge"
	"github.com/marcin-skalski/mondrian/internal/status"
)

func newJenkins(cfg *config.Config, logger *slog.Logger) *jenkins.Client {
	http := fetch.NewClient(fetch.Options{
		Timeout:  cfg.HTTPTimeout,
		User:     cfg.Jenkins.User,
		Password: cfg.Jenkins.APIToken,
	}, logger.With("upstream", "jenkins"))
	return jenkins.NewClient(cfg.Jenkins.BaseURL, http, logger)
}

func newGerrit(cfg *config.Config, logger *slog.Logger) *gerrit.Client {
	http := fetch.NewClient(fetch.Options{
		Timeout:  cfg.HTTPTimeout,
		User:     cfg.Gerrit.User,
		Password: cfg.Gerrit.Password,
	}, logger.With("upstream", "gerrit"))
	return gerrit.NewClient(cfg.Gerrit.BaseURL, cfg.Gerrit.PageSize, http, logger)
}

func categories(cfg *config.Config) []daemon.JobCategory {
	return []daemon.JobCategory{
		daemon.NewJobCategory(status.CategoryBuild, cfg.Jenkins.BuildJobs),
		daemon.NewJobCategory(status.CategoryCITests, cfg.Jenkins.CITestJobs),
		daemon.NewJobCategory(status.CategoryOtherTests, cfg.Jenkins.OtherTestJobs),
	}
}

func newNudger(cfg *config.Config, logger *slog.Logger) daemon.Nudger {
	if !cfg.NudgeEnabled() {
		return nudge.Noop{}
	}
	return nudge.New(nudge.NewXdotool(logger), cfg.Nudge.Offset, logger)
}

func daemonOptions(cfg *config.Config) daemon.Options {
	return daemon.Options{
		PollInterval:  cfg.PollInterval,
		CheckInterval: cfg.CheckInterval,
		Throttle:      cfg.Throttle.Enabled,
		Hours: daemon.WorkingHours{
			Start: *cfg.Throttle.StartHour,
			End:   *cfg.Throttle.EndHour,
		},
		NightSleep: cfg.Throttle.NightSleep,
	}
}

func newDaemon(cfg *config.Config, sink daemon.Sink, logger *slog.Logger) (*daemon.Daemon, error) {
	agg := daemon.NewAggregator(newJenkins(cfg, logger), newGerrit(cfg, logger), daemon.ReviewLimits{
		Label:          cfg.Gerrit.Label,
		ReadyForReview: cfg.Gerrit.LimitsReadyForReview,
		Reviewed:       cfg.Gerrit.LimitsReviewed,
	}, logger)

	return daemon.New(agg, categories(cfg), sink, newNudger(cfg, logger), daemonOptions(cfg), logger)
}
