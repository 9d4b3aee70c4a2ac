// Package scheduler runs the recurring pricing jobs: a daily portfolio
// snapshot at midnight KST and a global price refresh every 30 minutes.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mkweon/asset-tracker/internal/kst"
	"github.com/mkweon/asset-tracker/internal/service"
)

type Scheduler struct {
	cron   *cron.Cron
	assets *service.AssetService
	totals *service.TotalsService
}

func New(assets *service.AssetService, totals *service.TotalsService) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(kst.Location)),
		assets: assets,
		totals: totals,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * *", s.runDailySnapshot); err != nil {
		return fmt.Errorf("failed to schedule daily snapshot: %w", err)
	}
	if _, err := s.cron.AddFunc("*/30 * * * *", s.runGlobalRefresh); err != nil {
		return fmt.Errorf("failed to schedule price refresh: %w", err)
	}

	s.cron.Start()
	log.Println("Scheduler started: daily snapshot at 00:00 KST, price refresh every 30 minutes")
	return nil
}

// Stop halts the cron loop. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// runDailySnapshot records the previous day's closing totals for every user
// from stored prices.
func (s *Scheduler) runDailySnapshot() {
	if err := s.totals.RunDailySnapshot(); err != nil {
		log.Printf("Daily snapshot failed: %v", err)
		return
	}
	log.Println("Daily snapshot completed")
}

// runGlobalRefresh re-prices every distinct holding across all users, one
// fetch per (symbol, type) pair.
func (s *Scheduler) runGlobalRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.assets.RefreshAllUsers(ctx); err != nil {
		log.Printf("Global price refresh failed: %v", err)
		return
	}
	log.Println("Global price refresh completed")
}
