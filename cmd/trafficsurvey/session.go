package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rewired-gh/trafficsurvey/internal/aggregator"
	"github.com/rewired-gh/trafficsurvey/internal/chart"
	"github.com/rewired-gh/trafficsurvey/internal/logger"
	"github.com/rewired-gh/trafficsurvey/internal/metrics"
	"github.com/rewired-gh/trafficsurvey/internal/models"
	"github.com/rewired-gh/trafficsurvey/internal/source"
	"github.com/rewired-gh/trafficsurvey/internal/storage"
)

type recordSource interface {
	Load(ctx context.Context, date models.SurveyDate) ([]models.Record, error)
}

type reportNotifier interface {
	SendReport(report *models.Report) error
}

// readLines scans r on its own goroutine so that a pending prompt can be
// abandoned when ctx is cancelled. The channel is closed at end of input.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// session runs the interactive prompt loop. Optional sinks are nil when disabled.
type session struct {
	lines <-chan string
	out   io.Writer

	source     recordSource
	aggregator *aggregator.Aggregator
	results    *storage.ResultsFile
	minYear    int
	maxYear    int

	history     *storage.History
	notifier    reportNotifier
	recorder    *metrics.Recorder
	metricsPath string
	charts      *chart.Renderer
}

// run prompts for dates until the user declines to continue, input ends or
// ctx is cancelled.
func (s *session) run(ctx context.Context) error {
	for {
		date, ok := s.promptDate(ctx)
		if !ok {
			break
		}

		s.process(ctx, date)

		if !s.promptContinue(ctx) {
			break
		}
	}

	fmt.Fprintln(s.out, "Exiting the program. Goodbye!")
	return ctx.Err()
}

// promptDate asks until a valid date is entered. It returns false at end of input.
func (s *session) promptDate(ctx context.Context) (models.SurveyDate, bool) {
	for ctx.Err() == nil {
		fmt.Fprintln(s.out, "Enter the date for the file you want to process (format: DDMMYYYY).")
		line, ok := s.readLine(ctx, "Date (e.g., 21122024): ")
		if !ok {
			return models.SurveyDate{}, false
		}

		date, err := models.ParseSurveyDate(line, s.minYear, s.maxYear)
		if err != nil {
			logger.Debug("Rejected date input %q: %v", line, err)
			fmt.Fprintln(s.out, "Invalid date format. Please try again.")
			continue
		}
		return date, true
	}
	return models.SurveyDate{}, false
}

func (s *session) promptContinue(ctx context.Context) bool {
	answer, ok := s.readLine(ctx, "Do you want to load another file? (yes/no): ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "no", "n":
		return false
	default:
		return true
	}
}

// readLine returns false at end of input or when ctx is cancelled.
func (s *session) readLine(ctx context.Context, prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	select {
	case line, ok := <-s.lines:
		if !ok || ctx.Err() != nil {
			fmt.Fprintln(s.out)
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-ctx.Done():
		fmt.Fprintln(s.out)
		return "", false
	}
}

// process loads, aggregates and publishes one date. Failures are reported to
// the user and never end the session.
func (s *session) process(ctx context.Context, date models.SurveyDate) {
	records, err := s.source.Load(ctx, date)
	if err != nil {
		s.reportSourceError(date, err)
		return
	}
	logger.Info("Loaded %d records for %s", len(records), date)

	report := s.aggregator.Aggregate(date, records)

	fmt.Fprintln(s.out, report.Header())
	for _, line := range report.Lines() {
		fmt.Fprintln(s.out, line)
	}

	opts := s.aggregator.Options()
	profiles := []models.SpeedProfile{
		aggregator.SpeedProfile(records, opts.JunctionA),
		aggregator.SpeedProfile(records, opts.JunctionB),
	}
	fmt.Fprintln(s.out)
	for _, p := range profiles {
		fmt.Fprintln(s.out, p)
	}

	if err := s.results.Append(&report); err != nil {
		logger.Error("Failed to append results: %v", err)
		fmt.Fprintf(s.out, "Error: could not save results: %v\n", err)
		s.sinkError("results")
	} else {
		fmt.Fprintf(s.out, "Results saved to '%s'.\n", s.results.Path())
	}

	s.publish(ctx, &report, profiles)

	if s.charts != nil {
		s.drawCharts(date, &report, records)
	}
}

func (s *session) reportSourceError(date models.SurveyDate, err error) {
	var parseErr *source.ParseError
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("Load of %s cancelled", date)
	case errors.Is(err, source.ErrNotFound):
		logger.Warn("No survey file for %s: %v", date, err)
		fmt.Fprintf(s.out, "Error: No file found for the date %s.\n", date.Compact())
		s.sourceError(metrics.ReasonNotFound)
	case errors.As(err, &parseErr):
		logger.Error("Malformed survey file: %v", err)
		detail := fmt.Sprintf("line %d: %v", parseErr.Line, parseErr.Err)
		if parseErr.Column != "" {
			detail = fmt.Sprintf("line %d, column %s: %v", parseErr.Line, parseErr.Column, parseErr.Err)
		}
		fmt.Fprintf(s.out, "Error: invalid input format in %s: %s\n", parseErr.File, detail)
		s.sourceError(metrics.ReasonParseError)
	default:
		logger.Error("Failed to load survey for %s: %v", date, err)
		fmt.Fprintf(s.out, "Error: %v\n", err)
		s.sourceError(metrics.ReasonOther)
	}
}

// publish hands the report to the optional sinks.
func (s *session) publish(ctx context.Context, report *models.Report, profiles []models.SpeedProfile) {
	if s.history != nil {
		if prior, err := s.history.ForDate(ctx, report.Date); err != nil {
			logger.Warn("Failed to look up report history: %v", err)
		} else if len(prior) > 0 {
			logger.Info("Survey %s was already reported %d time(s), last at %s",
				report.Date, len(prior), prior[0].CreatedAt.Format(time.RFC3339))
		}

		runID, err := s.history.Save(ctx, report)
		if err != nil {
			logger.Error("Failed to save report history: %v", err)
			s.sinkError("history")
		} else {
			logger.Debug("Saved report %s to history", runID)
			if removed, err := s.history.Rotate(ctx); err != nil {
				logger.Warn("Failed to rotate report history: %v", err)
			} else if removed > 0 {
				logger.Debug("Rotated %d old reports out of history", removed)
			}
		}
	}

	if s.notifier != nil {
		if err := s.notifier.SendReport(report); err != nil {
			logger.Warn("Failed to send report to Telegram: %v", err)
			s.sinkError("telegram")
		} else {
			logger.Info("Report for %s sent to Telegram", report.Date)
		}
	}

	if s.recorder != nil {
		s.recorder.ObserveReport(report)
		for _, p := range profiles {
			s.recorder.ObserveSpeed(p)
		}
		s.flushMetrics()
	}
}

func (s *session) drawCharts(date models.SurveyDate, report *models.Report, records []models.Record) {
	fmt.Fprintln(s.out)
	if err := s.charts.Categories("Histogram for "+date.Compact(), chart.ReportBars(report)); err != nil {
		logger.Warn("Failed to draw category chart: %v", err)
		return
	}

	junctions := []string{report.JunctionA, report.JunctionB}
	freq := aggregator.HourlyFrequencies(records, junctions...)
	fmt.Fprintln(s.out)
	title := fmt.Sprintf("Histogram of Vehicle Frequency per Hour (%s)", date)
	if err := s.charts.Hourly(title, junctions, freq); err != nil {
		logger.Warn("Failed to draw hourly histogram: %v", err)
	}
}

func (s *session) sourceError(reason string) {
	if s.recorder != nil {
		s.recorder.SourceError(reason)
		s.flushMetrics()
	}
}

func (s *session) sinkError(sink string) {
	if s.recorder != nil {
		s.recorder.SinkError(sink)
	}
}

func (s *session) flushMetrics() {
	if err := s.recorder.WriteTextfile(s.metricsPath); err != nil {
		logger.Warn("%v", err)
	}
}
