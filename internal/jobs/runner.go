package jobs

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs cron jobs. A job whose previous run is still in progress
// is skipped instead of stacked.
type TaskExecutor struct {
	cron     *cron.Cron
	cronJobs []CronJob
	running  mapset.Set[string]
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewTaskExecutor(cronJobs ...CronJob) *TaskExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskExecutor{
		cron:     cron.New(),
		cronJobs: cronJobs,
		running:  mapset.NewSet[string](),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start schedules every job with a non-empty schedule and starts the cron.
func (t *TaskExecutor) Start() error {
	for _, job := range t.cronJobs {
		if job.Schedule() == "" {
			logrus.Infof("task %s is disabled", job.Name())
			continue
		}

		err := t.cron.AddFunc(job.Schedule(), func() {
			t.run(job)
		})
		if err != nil {
			logrus.Errorf("failed to add task %s to cron: %v", job.Name(), err)
			return err
		}
		logrus.Infof("scheduled task %s: %s", job.Name(), job.Schedule())
	}

	t.cron.Start()
	return nil
}

// run executes job unless it is already running and reports whether it ran.
func (t *TaskExecutor) run(job Job) bool {
	if !t.running.Add(job.Name()) {
		logrus.Warnf("task %s is already running", job.Name())
		return false
	}
	t.wg.Add(1)
	defer func() {
		t.running.Remove(job.Name())
		t.wg.Done()
	}()

	if err := job.Run(t.ctx); err != nil {
		logrus.Errorf("task %s failed: %v", job.Name(), err)
	}
	return true
}

// Stop stops the cron, cancels the running jobs and waits for them to return.
func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
	t.cancel()
	t.wg.Wait()
}
