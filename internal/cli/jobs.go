package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/mondrian/internal/config"
	"github.com/marcin-skalski/mondrian/internal/logging"
	"github.com/marcin-skalski/mondrian/internal/status"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List CI jobs or show the latest build of one",
	Long: `List every job on the Jenkins server, marking the category each
configured job belongs to. With --job, print the latest completed build of
that job instead.`,
	Args: cobra.NoArgs,
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringP("job", "j", "", "show the latest completed build of this job")
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogFile, cfg.Log.Level, false)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logger.Close()

	jc := newJenkins(cfg, logger.Logger)
	out := cmd.OutOrStdout()

	if job, _ := cmd.Flags().GetString("job"); job != "" {
		res, err := jc.LatestCompletedBuild(cmd.Context(), job)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s #%d %s (%s)\n", res.Job, res.Number, res.Outcome, status.JobLevel([]status.JobResult{res}))
		return nil
	}

	names, err := jc.ListJobs(cmd.Context())
	if err != nil {
		return err
	}
	sort.Strings(names)

	membership := jobMembership(cfg)
	for _, name := range names {
		if cat, ok := membership[name]; ok {
			fmt.Fprintf(out, "%s [%s]\n", name, cat)
			continue
		}
		fmt.Fprintln(out, name)
	}
	return nil
}

func jobMembership(cfg *config.Config) map[string]status.Category {
	m := make(map[string]status.Category)
	for _, cat := range categories(cfg) {
		for _, job := range cat.Jobs() {
			m[job] = cat.Name()
		}
	}
	return m
}
