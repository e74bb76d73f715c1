// Package log provides the zerolog-based console feedback used by the
// elommr CLI while it replays a batch of historical contests: a
// spinner-backed progress bar over the contest batch, and a per-contest
// phase logger for verbose diagnostics of a single Submit call.
package log

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchProgress reports progress through a batch replay of contests.
type BatchProgress struct {
	mu         sync.Mutex
	name       string
	total      int
	current    int
	startTime  time.Time
	spinner    *Spinner
	showBar    bool
	showSpin   bool
	showETA    bool
	failedAt   string
	lastUpdate time.Time
}

// Spinner provides rotating visual feedback.
type Spinner struct {
	chars    []string
	current  int
	interval time.Duration
	stop     chan bool
	running  bool
	mu       sync.Mutex
}

// ProgressConfig configures a BatchProgress.
type ProgressConfig struct {
	ShowSpinner  bool
	ShowProgress bool
	ShowETA      bool
	SpinnerStyle SpinnerStyle
}

// SpinnerStyle names a spinner animation.
type SpinnerStyle string

const (
	SpinnerDots SpinnerStyle = "dots"
	SpinnerLine SpinnerStyle = "line"
)

// DefaultProgressConfig is the verbose console default.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{ShowSpinner: true, ShowProgress: true, ShowETA: true, SpinnerStyle: SpinnerDots}
}

// QuietProgressConfig disables every visual element; callers typically
// select this when stdout is not a terminal.
func QuietProgressConfig() ProgressConfig {
	return ProgressConfig{}
}

// NewBatchProgress starts tracking a replay of total contests.
func NewBatchProgress(name string, total int, cfg ProgressConfig) *BatchProgress {
	bp := &BatchProgress{
		name:       name,
		total:      total,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
		showBar:    cfg.ShowProgress,
		showSpin:   cfg.ShowSpinner,
		showETA:    cfg.ShowETA,
	}
	if cfg.ShowSpinner {
		bp.spinner = newSpinner(cfg.SpinnerStyle)
		bp.spinner.Start()
	}
	return bp
}

func newSpinner(style SpinnerStyle) *Spinner {
	s := &Spinner{interval: 100 * time.Millisecond, stop: make(chan bool, 1)}
	switch style {
	case SpinnerLine:
		s.chars = []string{"-", "\\", "|", "/"}
	default:
		s.chars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	}
	return s
}

func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.spin()
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.stop <- true
}

func (s *Spinner) spin() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.current = (s.current + 1) % len(s.chars)
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chars[s.current]
}

// ContestSubmitted counts one more contest toward total and redraws
// the progress line.
func (bp *BatchProgress) ContestSubmitted(contestID int64, participants int) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.current++
	bp.lastUpdate = time.Now()
	bp.print(fmt.Sprintf("contest %d (%d players)", contestID, participants))
}

func (bp *BatchProgress) print(message string) {
	var out strings.Builder
	out.WriteString("\r\033[K")
	if bp.spinner != nil && bp.showSpin {
		out.WriteString(bp.spinner.Current())
		out.WriteString(" ")
	}
	out.WriteString(bp.name)
	if bp.showBar && bp.total > 0 {
		pct := float64(bp.current) / float64(bp.total) * 100
		width := 20
		filled := int(float64(width) * float64(bp.current) / float64(bp.total))
		out.WriteString(" [")
		for i := 0; i < width; i++ {
			if i < filled {
				out.WriteString("█")
			} else {
				out.WriteString("░")
			}
		}
		out.WriteString(fmt.Sprintf("] %d/%d (%.1f%%)", bp.current, bp.total, pct))
	}
	if bp.showETA && bp.total > 0 && bp.current > 0 {
		elapsed := time.Since(bp.startTime)
		rate := float64(bp.current) / elapsed.Seconds()
		remaining := bp.total - bp.current
		eta := time.Duration(float64(remaining)/rate) * time.Second
		out.WriteString(fmt.Sprintf(" ETA: %v", eta.Round(time.Second)))
	}
	if message != "" {
		out.WriteString(" - ")
		out.WriteString(message)
	}
	fmt.Print(out.String())
}

// Finish reports the batch as done and stops the spinner.
func (bp *BatchProgress) Finish() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.spinner != nil {
		bp.spinner.Stop()
	}
	duration := time.Since(bp.startTime)
	fmt.Printf("\r✅ %s: %d contests replayed (%v)\n", bp.name, bp.total, duration.Round(time.Millisecond))
	log.Info().Int("contests", bp.total).Dur("duration", duration).Msg("batch replay completed")
}

// Fail reports the batch replay as aborted.
func (bp *BatchProgress) Fail(reason string) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.failedAt = reason
	if bp.spinner != nil {
		bp.spinner.Stop()
	}
	fmt.Printf("\r❌ %s failed after %d/%d contests: %s\n", bp.name, bp.current, bp.total, reason)
	log.Error().Int("completed", bp.current).Int("total", bp.total).Str("reason", reason).Msg("batch replay failed")
}

// ContestPhaseLogger logs the four phases of a single Engine.Submit
// call (standings, diffusion, performance, ranking) with per-phase
// timing, for verbose diagnostics of one contest. Phase names are
// whatever the caller passes to Phase.
type ContestPhaseLogger struct {
	contestID int64
	phase     string
	start     time.Time
	begun     time.Time
}

// NewContestPhaseLogger starts timing contestID's submission.
func NewContestPhaseLogger(contestID int64) *ContestPhaseLogger {
	now := time.Now()
	return &ContestPhaseLogger{contestID: contestID, start: now, begun: now}
}

// Phase marks the start of a new phase, logging the duration of
// whichever phase preceded it.
func (l *ContestPhaseLogger) Phase(name string) {
	now := time.Now()
	if l.phase != "" {
		log.Debug().
			Int64("contest_id", l.contestID).
			Str("phase", l.phase).
			Dur("duration", now.Sub(l.begun)).
			Msg("submit phase completed")
	}
	l.phase = name
	l.begun = now
}

// Done logs the final phase and the contest's total submit duration.
func (l *ContestPhaseLogger) Done() {
	if l.phase != "" {
		log.Debug().
			Int64("contest_id", l.contestID).
			Str("phase", l.phase).
			Dur("duration", time.Since(l.begun)).
			Msg("submit phase completed")
	}
	log.Debug().
		Int64("contest_id", l.contestID).
		Dur("total_duration", time.Since(l.start)).
		Msg("submit completed")
}
