package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"FundLens/internal/notifier"
	"FundLens/internal/pipeline"
	"FundLens/internal/recorder"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Reporter delivers a rendered report somewhere.
type Reporter interface {
	SendReport(ctx context.Context, report string) error
}

// History reads runs archived by earlier processes.
type History interface {
	LastSnapshot() ([]recorder.SnapshotEntry, error)
	RunCount(status string) (int, error)
}

// Scheduler triggers pipeline runs on a cron schedule and reports each one.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Reporter Reporter
	History  History // optional; answers /status before the first run
	Ctx      context.Context

	running atomic.Bool

	mu         sync.Mutex
	lastReport string
	lastErr    error
}

// NewScheduler creates a new Scheduler. rep may be nil.
func NewScheduler(ctx context.Context, runner Runner, rep Reporter) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Reporter: rep,
		Ctx:      ctx,
	}
}

// Register schedules the run job. spec uses the six-field cron format.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register run job %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes one pass immediately. It returns false without running
// when a previous pass is still in progress.
func (s *Scheduler) RunNow() bool {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("[WARN] previous run still in progress, skipping")
		return false
	}
	defer s.running.Store(false)

	res, err := s.Runner.Run(s.Ctx)
	var report string
	if err != nil {
		log.Printf("[ERROR] run failed: %v", err)
		report = notifier.FormatFailure(res, err)
	} else {
		report = notifier.FormatSummary(res)
	}
	fmt.Println(report)

	s.mu.Lock()
	s.lastReport = report
	s.lastErr = err
	s.mu.Unlock()

	if s.Reporter != nil {
		if err := s.Reporter.SendReport(s.Ctx, report); err != nil {
			log.Printf("[ERROR] send report: %v", err)
		}
	}
	return true
}

// LastReport returns the most recent report, or "" before the first run.
func (s *Scheduler) LastReport() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// LastError returns the error of the most recent run, if any.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HandleCommand answers chat commands: /status repeats the last report and
// /run triggers a pass in the background.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/status":
		r := s.LastReport()
		if r == "" {
			r = s.archivedReport()
		}
		if r == "" {
			return "No run has completed yet."
		}
		return "<pre>" + html.EscapeString(r) + "</pre>"
	case "/run":
		if s.running.Load() {
			return "A run is already in progress."
		}
		go s.RunNow()
		return "Run started."
	case "/help", "/start":
		return "Commands: /status, /run"
	default:
		return ""
	}
}


func (s *Scheduler) archivedReport() string {
	if s.History == nil {
		return ""
	}
	entries, err := s.History.LastSnapshot()
	if err != nil {
		log.Printf("[WARN] read archived snapshot: %v", err)
		return ""
	}
	if len(entries) == 0 {
		return ""
	}
	runs, err := s.History.RunCount(recorder.StatusSuccess)
	if err != nil {
		log.Printf("[WARN] count archived runs: %v", err)
	}
	return notifier.FormatArchivedSnapshot(entries, runs)
}
