package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonnyWalker81/trendy/engagement/internal/achievement"
	"github.com/JonnyWalker81/trendy/engagement/internal/engine"
	"github.com/JonnyWalker81/trendy/engagement/internal/models"
	"github.com/JonnyWalker81/trendy/engagement/internal/trend"
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute a metrics snapshot from JSON files",
	Long: `Read a JSON array of events (and optionally stored achievement progress),
compute the full metrics snapshot and print it as JSON. Nothing is stored.`,
	RunE: runCompute,
}

type computeOptions struct {
	eventsPath   string
	progressPath string
	catalogPath  string
	timezone     string
	now          string
	window       int
	threshold    float64
}

var computeOpts computeOptions

func init() {
	f := computeCmd.Flags()
	f.StringVarP(&computeOpts.eventsPath, "events", "e", "", "JSON file with an array of events (required)")
	f.StringVar(&computeOpts.progressPath, "progress", "", "JSON file with an array of stored achievement progress")
	f.StringVar(&computeOpts.catalogPath, "catalog", "", "YAML achievement catalog (default: built-in catalog)")
	f.StringVar(&computeOpts.timezone, "tz", "UTC", "IANA timezone or UTC offset used for calendar days")
	f.StringVar(&computeOpts.now, "now", "", "Reference instant in RFC 3339 (default: current time)")
	f.IntVar(&computeOpts.window, "window", trend.DefaultWindowSize, "Trend window size")
	f.Float64Var(&computeOpts.threshold, "threshold", trend.DefaultThreshold, "Trend threshold")
	_ = computeCmd.MarkFlagRequired("events")
}

func runCompute(cmd *cobra.Command, args []string) error {
	snapshot, err := compute(computeOpts, time.Now())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

// compute resolves the options and builds the snapshot; clock is used when
// no reference instant is given
func compute(opts computeOptions, clock time.Time) (models.Snapshot, error) {
	loc, err := models.LoadLocation(opts.timezone)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("--tz: %w", err)
	}

	now := clock
	if opts.now != "" {
		now, err = time.Parse(time.RFC3339Nano, opts.now)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("--now must be an RFC 3339 timestamp: %w", err)
		}
	}

	var raw []models.RawEvent
	if err := readJSON(opts.eventsPath, &raw); err != nil {
		return models.Snapshot{}, err
	}

	var progress []models.AchievementProgress
	if opts.progressPath != "" {
		if err := readJSON(opts.progressPath, &progress); err != nil {
			return models.Snapshot{}, err
		}
	}

	catalog := achievement.DefaultCatalog()
	if opts.catalogPath != "" {
		catalog, err = achievement.LoadCatalogFile(opts.catalogPath)
		if err != nil {
			return models.Snapshot{}, err
		}
	}

	engineOpts := engine.DefaultOptions(now, loc)
	engineOpts.TrendWindowSize = opts.window
	engineOpts.TrendThreshold = opts.threshold

	return engine.FromRaw(raw, achievement.Index(progress), catalog, engineOpts)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
