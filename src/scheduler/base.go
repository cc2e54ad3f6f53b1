package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ScheduledTask runs one function on a cron spec. Runs never overlap and a
// panic in the function is logged instead of killing the process.
type ScheduledTask struct {
	name   string
	cronID cron.EntryID
	cron   *cron.Cron
	cancel chan struct{}
}

func NewScheduledTask(name string, cronSpec string, logger *logrus.Entry, taskFunc func()) (*ScheduledTask, error) {
	cronLogger := cron.PrintfLogger(logger.WithField("task", name))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	cancel := make(chan struct{})
	task := &ScheduledTask{
		name:   name,
		cron:   c,
		cancel: cancel,
	}

	id, err := c.AddFunc(cronSpec, func() {
		select {
		case <-cancel:
			return
		default:
			taskFunc()
		}
	})
	if err != nil {
		return nil, err
	}

	task.cronID = id
	c.Start()
	return task, nil
}

// Cancel stops the schedule and waits for a running invocation to finish.
func (s *ScheduledTask) Cancel() {
	s.cron.Remove(s.cronID)
	close(s.cancel)
	<-s.cron.Stop().Done()
}
