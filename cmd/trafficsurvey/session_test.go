package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rewired-gh/trafficsurvey/internal/aggregator"
	"github.com/rewired-gh/trafficsurvey/internal/chart"
	"github.com/rewired-gh/trafficsurvey/internal/metrics"
	"github.com/rewired-gh/trafficsurvey/internal/models"
	"github.com/rewired-gh/trafficsurvey/internal/source"
	"github.com/rewired-gh/trafficsurvey/internal/storage"
)

const surveyHeader = "JunctionName,Date,timeOfDay,travel_Direction_in,travel_Direction_out,Weather_Conditions,JunctionSpeedLimit,VehicleSpeed,VehicleType,elctricHybrid"

type fakeNotifier struct {
	sent []*models.Report
	err  error
}

func (f *fakeNotifier) SendReport(report *models.Report) error {
	f.sent = append(f.sent, report)
	return f.err
}

type testEnv struct {
	dir     string
	out     *bytes.Buffer
	session *session
}

func newTestEnv(t *testing.T, input string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	return &testEnv{
		dir: dir,
		out: out,
		session: &session{
			lines:      readLines(context.Background(), strings.NewReader(input)),
			out:        out,
			source:     source.NewCSV(dir, "", nil),
			aggregator: aggregator.New(aggregator.Options{}),
			results:    storage.NewResultsFile(filepath.Join(dir, "results.txt"), 0),
			minYear:    2000,
			maxYear:    2024,
		},
	}
}

func (e *testEnv) writeSurvey(t *testing.T, date string, rows ...string) {
	t.Helper()
	body := strings.Join(append([]string{surveyHeader}, rows...), "\n") + "\n"
	if err := os.WriteFile(filepath.Join(e.dir, "traffic_data"+date+".csv"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSession_FullRun(t *testing.T) {
	env := newTestEnv(t, "abc\n15062024\nyes\n01012023\nno\n")
	env.writeSurvey(t, "15062024",
		"Elm Avenue/Rabbit Road,15/06/2024,08:05:00,N,S,Clear,30,35,Truck,False",
		"Hanley Highway/Westway,15/06/2024,09:10:00,E,E,Light Rain,40,38,Car,True",
		"Hanley Highway/Westway,15/06/2024,09:40:00,W,N,Light Rain,40,30,Bicycle,False",
		"Hanley Highway/Westway,15/06/2024,10:00:00,W,E,Clear,40,30,Car,False",
	)

	history, err := storage.Open(":memory:", 10)
	if err != nil {
		t.Fatal(err)
	}
	defer history.Close()
	notifier := &fakeNotifier{}
	recorder := metrics.New()

	s := env.session
	s.history = history
	s.notifier = notifier
	s.recorder = recorder
	s.metricsPath = filepath.Join(env.dir, "metrics.prom")
	s.charts = chart.New(env.out, 20)

	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := env.out.String()
	for _, want := range []string{
		"Invalid date format. Please try again.",
		"***** Results for 15/06/2024 *****",
		"The total number of vehicles recorded for this date is 4",
		"The number of hours of rain for this date is 0 hours and 30 minutes",
		"Results saved to '" + filepath.Join(env.dir, "results.txt") + "'.",
		"Speeds through Elm Avenue/Rabbit Road: mean 35.0, std dev 0.0 (1 vehicles), 1 over the limit by 5.0 on average",
		"Speeds through Hanley Highway/Westway: mean 32.7, std dev 4.6 (3 vehicles), none over the limit",
		"Histogram for 15062024",
		"Hours (00:00 to 23:00)",
		"Error: No file found for the date 01012023.",
		"Exiting the program. Goodbye!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(filepath.Join(env.dir, "results.txt"))
	if err != nil {
		t.Fatalf("results file not written: %v", err)
	}
	if got := strings.Count(string(data), "***** Results for"); got != 1 {
		t.Errorf("expected 1 report in results file, got %d", got)
	}

	if n, err := history.Count(context.Background()); err != nil || n != 1 {
		t.Errorf("history count = %d, %v; want 1", n, err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Total != 4 {
		t.Errorf("unexpected notifications: %+v", notifier.sent)
	}

	families, err := recorder.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				got[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				got[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	want := map[string]float64{
		"trafficsurvey_reports_total":        1,
		"trafficsurvey_records_total":        4,
		"trafficsurvey_source_errors_total":  1,
		"trafficsurvey_last_report_vehicles": 4,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %v, want %v", name, got[name], v)
		}
	}
	textfile, err := os.ReadFile(s.metricsPath)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	for _, want := range []string{
		`trafficsurvey_last_mean_speed{junction="Elm Avenue/Rabbit Road"} 35`,
		`trafficsurvey_last_mean_excess_speed{junction="Elm Avenue/Rabbit Road"} 5`,
		`trafficsurvey_last_mean_excess_speed{junction="Hanley Highway/Westway"} 0`,
	} {
		if !strings.Contains(string(textfile), want) {
			t.Errorf("metrics textfile missing %q:\n%s", want, textfile)
		}
	}
}

func TestSession_ExitAnswers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		reports int
	}{
		{"no", "15062024\nno\n15062024\n", 1},
		{"short n", "15062024\nN\n15062024\n", 1},
		{"yes continues", "15062024\nyes\n15062024\nno\n", 2},
		{"anything else continues", "15062024\nmaybe\n15062024\nno\n", 2},
		{"end of input", "15062024\n", 1},
		{"end of input at date prompt", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.input)
			env.writeSurvey(t, "15062024", "Elm Avenue/Rabbit Road,15/06/2024,08:05:00,N,S,Clear,30,35,Truck,False")

			if err := env.session.run(context.Background()); err != nil {
				t.Fatalf("run failed: %v", err)
			}

			out := env.out.String()
			if got := strings.Count(out, "***** Results for 15/06/2024 *****"); got != tt.reports {
				t.Errorf("expected %d reports, got %d:\n%s", tt.reports, got, out)
			}
			if !strings.HasSuffix(out, "Exiting the program. Goodbye!\n") {
				t.Errorf("expected goodbye at the end:\n%s", out)
			}
		})
	}
}

func TestSession_ParseError(t *testing.T) {
	env := newTestEnv(t, "15062024\nno\n")
	env.writeSurvey(t, "15062024",
		"Elm Avenue/Rabbit Road,15/06/2024,08:05:00,N,S,Clear,30,35,Truck,False",
		"Elm Avenue/Rabbit Road,15/06/2024,08:10:00,N,S,Clear,thirty,35,Truck,False",
	)
	env.session.recorder = metrics.New()
	env.session.metricsPath = filepath.Join(env.dir, "metrics.prom")

	if err := env.session.run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := env.out.String()
	if !strings.Contains(out, "Error: invalid input format in traffic_data15062024.csv: line 3, column JunctionSpeedLimit") {
		t.Errorf("missing parse error message:\n%s", out)
	}
	if strings.Contains(out, "***** Results for") {
		t.Errorf("no report should be produced for a malformed file:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "results.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("results file should not exist, stat err = %v", err)
	}
	if _, err := os.Stat(env.session.metricsPath); err != nil {
		t.Errorf("metrics textfile should be written on source errors: %v", err)
	}
}

func TestSession_NotifierFailureDoesNotStopLoop(t *testing.T) {
	env := newTestEnv(t, "15062024\nyes\n15062024\nno\n")
	env.writeSurvey(t, "15062024", "Elm Avenue/Rabbit Road,15/06/2024,08:05:00,N,S,Clear,30,35,Truck,False")
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	env.session.notifier = notifier

	if err := env.session.run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(notifier.sent) != 2 {
		t.Errorf("expected 2 send attempts, got %d", len(notifier.sent))
	}
	if got := strings.Count(env.out.String(), "Results saved to"); got != 2 {
		t.Errorf("expected both reports saved, got %d", got)
	}
}

func TestSession_Cancelled(t *testing.T) {
	env := newTestEnv(t, "15062024\nyes\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := env.session.run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if strings.Contains(env.out.String(), "Date (e.g., 21122024)") {
		t.Errorf("cancelled session should not prompt:\n%s", env.out.String())
	}
}

// syncBuffer guards output written by run while the test goroutine reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSession_CancelWhileWaitingForInput(t *testing.T) {
	// The pipe is never written to, like a terminal nobody types into.
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	env := newTestEnv(t, "")
	s := env.session
	s.lines = readLines(ctx, pr)
	s.out = out

	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "Date (e.g., 21122024): ") {
		if time.Now().After(deadline) {
			t.Fatalf("prompt never shown:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	if !strings.HasSuffix(out.String(), "Exiting the program. Goodbye!\n") {
		t.Errorf("expected goodbye at the end:\n%s", out.String())
	}
}
