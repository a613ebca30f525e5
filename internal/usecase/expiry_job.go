package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/ports"
	"github.com/robfig/cron/v3"
)

// ExpiryJob periodically moves active contracts past their expiry date to
// expired. Each contract gets its own transaction and audit row.
type ExpiryJob struct {
	engine   *ContractEngine
	store    ports.ContractReader
	actors   ports.ActorRepository
	username string
	schedule string
	log      logger.Logger
	onSweep  func(time.Duration)
	cron     *cron.Cron
}

// NewExpiryJob creates the sweeper. username names the actor recorded on the
// expire log rows.
func NewExpiryJob(engine *ContractEngine, store ports.ContractReader, actors ports.ActorRepository, username, schedule string, log logger.Logger) *ExpiryJob {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ExpiryJob{
		engine:   engine,
		store:    store,
		actors:   actors,
		username: username,
		schedule: schedule,
		log:      log.WithFields(map[string]interface{}{"component": "expiry_job"}),
	}
}

// OnSweep registers a hook receiving the duration of every sweep.
func (j *ExpiryJob) OnSweep(fn func(time.Duration)) {
	j.onSweep = fn
}

// Start schedules the sweeper. The schedule has a leading seconds field.
func (j *ExpiryJob) Start() error {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(context.Background(), time.Now()); err != nil {
			j.log.Error(context.Background(), "Expiry sweep failed", err, nil)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule expiry job: %w", err)
	}
	c.Start()
	j.cron = c

	j.log.Info(context.Background(), "Expiry job scheduled", map[string]interface{}{"schedule": j.schedule})
	return nil
}

// Stop waits for a running sweep to finish.
func (j *ExpiryJob) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce expires every qualifying contract as of asOf and returns how many
// were moved.
func (j *ExpiryJob) RunOnce(ctx context.Context, asOf time.Time) (int, error) {
	start := time.Now()
	defer func() {
		if j.onSweep != nil {
			j.onSweep(time.Since(start))
		}
	}()

	actor, err := j.actors.FindByUsername(ctx, j.username)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve expiry actor %q: %w", j.username, err)
	}

	ids, err := j.store.ListExpiredContractIDs(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired contracts: %w", err)
	}

	expired := 0
	for _, id := range ids {
		ok, err := j.engine.Expire(ctx, actor, id, asOf)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound || domain.KindOf(err) == domain.KindInvalidState {
				continue
			}
			j.log.Error(ctx, "Failed to expire contract", err, map[string]interface{}{"contract_id": id})
			continue
		}
		if ok {
			expired++
		}
	}

	logger.LogPerformance(ctx, j.log, "expiry_sweep", time.Since(start), map[string]interface{}{
		"candidates": len(ids),
		"expired":    expired,
		"as_of":      asOf.Format(time.RFC3339),
	})
	return expired, nil
}
