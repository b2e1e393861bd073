package service

import (
	"strconv"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/config"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/repository"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
)

// CronService schedules the tracking jobs: catalog refresh before open,
// poller start and stop around market hours, reconciliation after close and
// retention cleanup overnight.
type CronService struct {
	c            *cron.Cron
	cal          *calendar.Calendar
	tracker      *config.Tracker
	catalog      *CatalogService
	poller       *QuotePoller
	eod          *EODReconciler
	snapshotRepo *repository.SnapshotRepository
	circuitRepo  *repository.CircuitRepository
}

// NewCronService creates a new CronService
func NewCronService(cal *calendar.Calendar, tracker *config.Tracker, catalog *CatalogService, poller *QuotePoller, eod *EODReconciler, snapshotRepo *repository.SnapshotRepository, circuitRepo *repository.CircuitRepository) *CronService {
	return &CronService{
		c:            cron.New(cron.WithLocation(cal.Location())),
		cal:          cal,
		tracker:      tracker,
		catalog:      catalog,
		poller:       poller,
		eod:          eod,
		snapshotRepo: snapshotRepo,
		circuitRepo:  circuitRepo,
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// SCHEDULED jobs
	// ------------------------------------------------------------
	cs.addScheduledJob("Catalog REFRESH Job", cs.catalogRefreshJob, "30 8 * * 1-5")   // Once at 08:30am, Mon-Fri
	cs.addScheduledJob("Catalog EXPIRE Job", cs.catalogExpireJob, "35 8 * * 1-5")     // Once at 08:35am, Mon-Fri
	cs.addScheduledJob("Poller START Job", cs.pollerStartJob, "15 9 * * 1-5")         // At market open, Mon-Fri
	cs.addScheduledJob("Poller STOP Job", cs.pollerStopJob, "35 15 * * 1-5")          // Just after close, Mon-Fri
	cs.addScheduledJob("EOD RECONCILE Job", cs.eodReconcileJob, "0 16 * * 1-5")       // After the settle delay, Mon-Fri
	cs.addScheduledJob("Retention CLEANUP Job", cs.retentionCleanupJob, "0 2 * * *")  // Overnight, daily

	// ------------------------------------------------------------
	// STARTUP jobs
	// ------------------------------------------------------------
	cs.addStartupJob("Catalog REFRESH Job", cs.catalogRefreshJob, 1*time.Second)
	cs.addStartupJob("Poller START Job", cs.pollerStartJob, 10*time.Second)
	cs.addStartupJob("EOD RECONCILE Job", cs.eodReconcileJob, 15*time.Second)
	// ------------------------------------------------------------

	cs.c.Start()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// catalogRefreshJob pulls the latest contract dump from the broker
func (cs *CronService) catalogRefreshJob() {
	jobName := "Catalog REFRESH Job "

	rowsInserted, err := cs.catalog.Refresh(false)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"rows_inserted": strconv.FormatInt(rowsInserted, 10),
	})
}

// catalogExpireJob flags contracts past their expiry
func (cs *CronService) catalogExpireJob() {
	jobName := "Catalog EXPIRE Job "

	rowsExpired, err := cs.catalog.MarkExpired()
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"rows_expired": strconv.FormatInt(rowsExpired, 10),
	})
}

// pollerStartJob starts the quote poller on trading days
func (cs *CronService) pollerStartJob() {
	jobName := "Poller START Job "

	if !cs.cal.IsTradingDay(time.Now()) {
		zaplogger.Info(jobName, zaplogger.Fields{
			"skipped": "not a trading day",
		})
		return
	}
	cs.poller.Start()
}

// pollerStopJob stops the quote poller
func (cs *CronService) pollerStopJob() {
	cs.poller.Stop()
}

// eodReconcileJob merges the day's bars and snapshots into EOD records
func (cs *CronService) eodReconcileJob() {
	jobName := "EOD RECONCILE Job "

	summary, err := cs.eod.Run()
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	if summary.Skipped {
		zaplogger.Info(jobName, zaplogger.Fields{
			"trading_date": summary.TradingDate,
			"skipped":      true,
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"trading_date": summary.TradingDate,
		"created":      summary.Created,
		"updated":      summary.Updated,
	})
}

// retentionCleanupJob prunes snapshots and change records past retention
func (cs *CronService) retentionCleanupJob() {
	jobName := "Retention CLEANUP Job "

	cutoff := time.Now().AddDate(0, 0, -cs.tracker.RetentionDays)

	snapshotsDeleted, err := cs.snapshotRepo.DeleteOlderThan(cutoff)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"step":  "DeleteSnapshots",
			"error": err.Error(),
		})
		return
	}
	changesDeleted, err := cs.circuitRepo.DeleteOlderThan(cutoff)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"step":  "DeleteChanges",
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"cutoff":            cutoff.Format("2006-01-02"),
		"snapshots_deleted": snapshotsDeleted,
		"changes_deleted":   changesDeleted,
	})
}
