// Package jobs runs the background schedules: proof-source polling and the
// oath deadline sweep.
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/oathbound/oathbound/internal/usecase"
)

type Scheduler struct {
	cron     *cron.Cron
	oaths    *usecase.OathUsecase
	checkIns *usecase.CheckInUsecase

	pollSchedule  string
	sweepSchedule string
}

func NewScheduler(oaths *usecase.OathUsecase, checkIns *usecase.CheckInUsecase, pollSchedule, sweepSchedule string) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		oaths:         oaths,
		checkIns:      checkIns,
		pollSchedule:  pollSchedule,
		sweepSchedule: sweepSchedule,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.pollSchedule, func() {
		s.checkIns.PollProofSources(ctx)
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(s.sweepSchedule, func() {
		s.oaths.SweepDeadlines(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	slog.Info("Scheduler started", slog.String("module", "jobs"))
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Scheduler stopped", slog.String("module", "jobs"))
}
