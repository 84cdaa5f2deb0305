/*
scheduler.go - Closed-day summary job

PURPOSE:
  Once a day, records yesterday's revenue, order count and top employee in
  the daily_summaries table, so past days stay visible without re-reading
  the whole sale history.

DESIGN:
  - Runs on a cron schedule in the shop's time zone (default "5 0 * * *")
  - "Yesterday" is the calendar day before the job's clock, shop-local
  - Re-running for a day overwrites that day's summary
  - A failed run is logged; the next run does not retry missed days

USAGE:
  job := NewDailySummaryJob(store, logger, loc)
  if err := job.Start("5 0 * * *"); err != nil { ... }
  defer job.Stop()

SEE ALSO:
  - analytics/report.go: Summarize, Leaderboard
  - store/sqlite/settings.go: SaveDailySummary
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/shop-engine/analytics"
	"github.com/warp/shop-engine/sales"
	"github.com/warp/shop-engine/store/sqlite"
)

// RunTimeout bounds one summary run.
const RunTimeout = time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// DailySummaryJob writes one DailySummary per closed day.
type DailySummaryJob struct {
	Store    *sqlite.Store
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time

	mu    sync.Mutex
	sched *cron.Cron
}

// NewDailySummaryJob creates a stopped job.
func NewDailySummaryJob(store *sqlite.Store, logger *zap.Logger, loc *time.Location) *DailySummaryJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &DailySummaryJob{
		Store:    store,
		Logger:   logger,
		Location: loc,
		Now:      time.Now,
	}
}

// Start schedules the job with spec (five-field cron, optional seconds, or
// a descriptor like "@daily").
func (j *DailySummaryJob) Start(spec string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.sched != nil {
		return errors.New("daily summary job already started")
	}

	sched := cron.New(cron.WithLocation(j.Location), cron.WithParser(cronParser))
	if _, err := sched.AddFunc(spec, j.run); err != nil {
		return err
	}
	sched.Start()
	j.sched = sched

	j.Logger.Info("daily summary job started", zap.String("spec", spec), zap.String("location", j.Location.String()))
	return nil
}

// Stop halts scheduling and waits for a running summary to finish.
func (j *DailySummaryJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.sched == nil {
		return
	}
	<-j.sched.Stop().Done()
	j.sched = nil
	j.Logger.Info("daily summary job stopped")
}

func (j *DailySummaryJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)
	defer cancel()

	if _, err := j.RunOnce(ctx); err != nil {
		j.Logger.Error("daily summary failed", zap.Error(err))
	}
}

// RunOnce summarizes yesterday and stores the result.
func (j *DailySummaryJob) RunOnce(ctx context.Context) (sqlite.DailySummary, error) {
	yesterday := analytics.DayOf(j.Now().In(j.Location)).AddDays(-1)
	return j.SummarizeDay(ctx, yesterday)
}

// SummarizeDay computes and stores the summary for day.
func (j *DailySummaryJob) SummarizeDay(ctx context.Context, day analytics.Day) (sqlite.DailySummary, error) {
	from, to := analytics.Period{Start: day, End: day}.Bounds(j.Location)
	history, err := j.Store.ListSales(ctx, sales.SaleFilter{From: &from, To: &to})
	if err != nil {
		return sqlite.DailySummary{}, err
	}

	// Summarize's "today" figure is unused here; only totals matter.
	totals := analytics.Summarize(history, to)
	sum := sqlite.DailySummary{
		Day:     day.String(),
		Revenue: totals.TotalRevenue,
		Orders:  totals.TotalCount,
	}
	if top := analytics.Leaderboard(history, 1); len(top) > 0 {
		sum.TopEmployeeID = string(top[0].EmployeeID)
		sum.TopEmployeeName = top[0].Name
		sum.TopEmployeeRevenue = top[0].Revenue
	}

	if err := j.Store.SaveDailySummary(ctx, sum); err != nil {
		return sum, err
	}

	j.Logger.Info("daily summary saved",
		zap.String("day", sum.Day),
		zap.String("revenue", sum.Revenue.StringFixed(2)),
		zap.Int("orders", sum.Orders),
		zap.String("top_employee_id", sum.TopEmployeeID))
	return sum, nil
}
