package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"HeikinSentinel/internal/alertstate"
	"HeikinSentinel/internal/notifier"
	"HeikinSentinel/internal/recorder"
)

// DigestWindow is how far back the digest looks.
const DigestWindow = 24 * time.Hour

// flushSpec retries persisting the alert state between cycles.
const flushSpec = "0 */5 * * * *"

// alertListLimit caps the /alerts reply.
const alertListLimit = 30

// Scheduler runs the periodic jobs around the scan loop and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Loop     *ScanLoop
	Store    alertstate.Store
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context

	logger zerolog.Logger
	now    func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, loop *ScanLoop, store alertstate.Store, n notifier.Notifier, rec recorder.Recorder, logger zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Loop:     loop,
		Store:    store,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// RegisterAll registers the digest job (skipped when digestCron is empty) and the
// periodic state flush.
func (s *Scheduler) RegisterAll(digestCron string) error {
	if digestCron != "" {
		if _, err := s.Cron.AddFunc(digestCron, s.SendDigest); err != nil {
			return fmt.Errorf("register digest task: %w", err)
		}
	}
	if _, err := s.Cron.AddFunc(flushSpec, s.flushState); err != nil {
		return fmt.Errorf("register state flush: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// Digest renders the alert summary of the last DigestWindow.
func (s *Scheduler) Digest() string {
	now := s.now()
	sum, err := s.Recorder.Summary(now.Add(-DigestWindow))
	if err != nil {
		s.logger.Error().Err(err).Msg("load alert summary")
		return fmt.Sprintf("⚠️ Digest unavailable: %v", err)
	}
	return notifier.FormatDigest(sum, now)
}

// SendDigest delivers the digest through the notifier.
func (s *Scheduler) SendDigest() {
	s.logger.Info().Msg("sending digest")
	s.trySend(s.Digest())
}

func (s *Scheduler) flushState() {
	if err := s.Store.Flush(s.Ctx); err != nil {
		s.logger.Error().Err(err).Msg("flush alert state")
	}
}

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	// "/status@SomeBot" addresses a bot in a group chat.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/status":
		return notifier.FormatStatus(len(s.Loop.Pairs()), s.Loop.Timeframes(), s.Loop.LastCycle(), len(s.Store.Snapshot()))
	case "/alerts":
		return notifier.FormatAlertState(s.Store.Snapshot(), alertListLimit)
	case "/digest":
		return s.Digest()
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Send(s.Ctx, text); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
