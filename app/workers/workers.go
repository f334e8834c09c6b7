package workers

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Worker is a named ticker loop. Run executes synchronously on the loop
// goroutine, so a tick that is still in flight when the next one is due
// simply delays it, ticks are never stacked.
type Worker struct {
	Name     string
	Interval time.Duration
	Run      func()
	Stop     chan struct{}
}

func NewWorker(name string, interval time.Duration, run func()) *Worker {
	return &Worker{
		Name:     name,
		Interval: interval,
		Run:      run,
		Stop:     make(chan struct{}),
	}
}

func (w *Worker) Start() {
	log.Infof("starting %s worker, interval %s", w.Name, w.Interval)
	w.Run()
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.Run()
		case <-w.Stop:
			log.Infof("%s worker stopped", w.Name)
			return
		}
	}
}

func (w *Worker) StopWorker() {
	w.Stop <- struct{}{}
}
