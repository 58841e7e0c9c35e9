package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dutyplan/app"
	"github.com/kilianp07/dutyplan/core/dispatch"
	"github.com/kilianp07/dutyplan/core/model"
	"github.com/kilianp07/dutyplan/pkg/export"
	"github.com/kilianp07/dutyplan/pkg/routefile"
)

var (
	scheduleRoute   string
	scheduleFormat  string
	scheduleOut     string
	scheduleSummary bool
	allOut          string
	allFormat       string
	allParallel     int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Compute the duty timetable of a route file",
	RunE:  runSchedule,
}

var scheduleAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Compute the timetable of every stored route",
	RunE:  runScheduleAll,
}

func init() {
	scheduleCmd.Flags().StringVarP(&scheduleRoute, "route", "r", "", "route file (yaml or json)")
	scheduleCmd.Flags().StringVarP(&scheduleFormat, "format", "f", "json", "output format: json, csv or pdf")
	scheduleCmd.Flags().StringVarP(&scheduleOut, "out", "o", "", "output file (default stdout)")
	scheduleCmd.Flags().BoolVar(&scheduleSummary, "summary", false, "print headway statistics instead of the timetable")
	_ = scheduleCmd.MarkFlagRequired("route")

	scheduleAllCmd.Flags().StringVarP(&allOut, "out", "o", "schedules", "output directory")
	scheduleAllCmd.Flags().StringVarP(&allFormat, "format", "f", "json", "output format: json, csv or pdf")
	scheduleAllCmd.Flags().IntVarP(&allParallel, "parallel", "p", 4, "routes computed concurrently")

	scheduleCmd.AddCommand(scheduleAllCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	doc, err := routefile.LoadOne(scheduleRoute)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	plan := dispatch.Compute(doc.Normalize(), cfg.Engine)

	out, closeOut, err := openOutput(cmd.OutOrStdout(), scheduleOut)
	if err != nil {
		return err
	}
	defer closeOut()
	if scheduleSummary {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dispatch.Summarize(plan))
	}
	return writeSchedule(out, scheduleFormat, routeTitle(doc), plan.Result)
}

func runScheduleAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Notify.Enabled = false
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	svc.Manager.SetWorkers(allParallel)

	plans, err := svc.ScheduleAll(cmd.Context())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(allOut, 0o755); err != nil {
		return err
	}
	for _, p := range plans {
		path := filepath.Join(allOut, p.ID+"."+strings.ToLower(allFormat))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		werr := writeSchedule(f, allFormat, "Route "+p.ID, p.Plan.Result)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("%s: %w", path, werr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d duties\t%d warnings\n", path, p.Plan.Stats.Duties, len(p.Plan.Result.Warnings))
	}
	return nil
}

func writeSchedule(w io.Writer, format, title string, res model.ScheduleResult) error {
	switch strings.ToLower(format) {
	case "json":
		return export.WriteJSON(w, res)
	case "csv":
		return export.WriteCSV(w, res)
	case "pdf":
		return export.WritePDF(w, title, res)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func routeTitle(doc model.RouteDocument) string {
	if doc.RouteName == "" {
		return "Route " + doc.RouteNumber
	}
	return fmt.Sprintf("Route %s %s", doc.RouteNumber, doc.RouteName)
}
