package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/container"
	"github.com/affiliateboard/backend/internal/jobs"
	"github.com/affiliateboard/backend/internal/logger"
)

var remote bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run maintenance jobs",
	Long: `Run the scheduled maintenance jobs once. By default a job runs in-process
against DATABASE_URL; with --remote it calls the server's cron endpoint using
CRON_SECRET.`,
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute every program's trending score",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd.Context(), "/api/cron/recompute-scores", func(ctx context.Context, r *jobs.Runner) (any, error) {
			return r.Recompute(ctx)
		})
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Reassign the random ranking tiebreaker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd.Context(), "/api/cron/rotate-weights", func(ctx context.Context, r *jobs.Runner) (any, error) {
			return r.Rotate(ctx)
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired traffic logs, events and search logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd.Context(), "/api/cron/cleanup", func(ctx context.Context, r *jobs.Runner) (any, error) {
			return r.Prune(ctx)
		})
	},
}

func init() {
	jobsCmd.PersistentFlags().BoolVar(&remote, "remote", false, "Call the server's cron endpoint instead of running in-process")
	jobsCmd.AddCommand(recomputeCmd)
	jobsCmd.AddCommand(rotateCmd)
	jobsCmd.AddCommand(pruneCmd)
}

func runJob(ctx context.Context, path string, run func(context.Context, *jobs.Runner) (any, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if remote {
		return callCron(ctx, cfg.CronSecret, path)
	}

	if err := logger.Initialize(cfg.Log.Level, "-"); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	app, err := container.BuildCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Cleanup(context.Background()) }()

	result, err := run(ctx, app.Jobs())
	if err != nil {
		return err
	}
	return printResult(result)
}

// callCron runs a job through the server, authenticating with the cron secret
func callCron(ctx context.Context, secret, path string) error {
	if secret == "" {
		return fmt.Errorf("CRON_SECRET is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(apiURL, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return printResult(result)
}

func printResult(result any) error {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if output == "json" {
		fmt.Println(string(encoded))
		return nil
	}

	// Text output lists the top-level fields one per line.
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return err
	}
	for _, key := range sortedKeys(fields) {
		fmt.Fprintf(os.Stdout, "%-18s %v\n", key+":", fields[key])
	}
	return nil
}
