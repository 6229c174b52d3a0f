package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gaitworks/posture.report/internal/db"
	"github.com/gaitworks/posture.report/internal/httputil"
	"github.com/gaitworks/posture.report/internal/protocol"
)

// handleRunReport renders an HTML bar chart of a stored run: per step, the
// achieved hold time or rep count against its target. Debugging and kiosk
// display aid; the structured data lives at /runs/{id}.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	detail, err := s.db.Run(r.PathValue("id"))
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load run")
		return
	}

	labels := make([]string, 0, len(detail.Steps))
	achieved := make([]opts.BarData, 0, len(detail.Steps))
	targets := make([]opts.BarData, 0, len(detail.Steps))
	for _, step := range detail.Steps {
		label := step.Key
		if step.Kind == protocol.HoldAny {
			// Hold steps record milliseconds; plot seconds so the two
			// step families share a readable scale.
			labels = append(labels, label+" (s)")
			achieved = append(achieved, opts.BarData{Value: float64(step.Achieved) / 1000})
			targets = append(targets, opts.BarData{Value: float64(step.Target) / 1000})
			continue
		}
		labels = append(labels, label+" (reps)")
		achieved = append(achieved, opts.BarData{Value: step.Achieved})
		targets = append(targets, opts.BarData{Value: step.Target})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Assessment Run Report",
			Theme:     "dark",
			Width:     "1100px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Assessment Run",
			Subtitle: fmt.Sprintf("run=%s source=%s score=%d/%d (%d%%, %s)",
				detail.RunID, detail.Source, detail.Completed, detail.Total,
				detail.Percent, detail.Level),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("achieved", achieved)
	bar.AddSeries("target", targets)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.InternalServerError(w, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
