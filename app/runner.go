package app

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/squads-treasury/models"
)

type Runner interface {
	Run()
	Status() models.RunnerStatus
}

// RunnerService calls its runner on a fixed interval until stopped.
type RunnerService struct {
	name     string
	runner   Runner
	wg       *sync.WaitGroup
	stop     chan bool
	interval time.Duration

	healthMu sync.RWMutex
	health   models.ServiceHealth
}

var _ models.Service = &RunnerService{}

func (x *RunnerService) Start() {
	log.Infof("[%s] Starting service", x.name)
	stop := false
	for !stop {
		log.Debugf("[%s] Starting run", x.name)

		x.runner.Run()

		x.UpdateHealth()

		log.Debugf("[%s] Finished run, sleeping for %s", x.name, x.interval)

		select {
		case <-x.stop:
			stop = true
			log.Infof("[%s] Stopped service", x.name)
		case <-time.After(x.interval):
		}
	}
	x.wg.Done()
}

func (x *RunnerService) Health() models.ServiceHealth {
	x.healthMu.RLock()
	defer x.healthMu.RUnlock()

	return x.health
}

func (x *RunnerService) UpdateHealth() {
	x.healthMu.Lock()
	defer x.healthMu.Unlock()

	lastSyncTime := time.Now()
	status := x.runner.Status()

	x.health = models.ServiceHealth{
		Name:             x.name,
		LastSyncTime:     lastSyncTime,
		NextSyncTime:     lastSyncTime.Add(x.interval),
		TransactionIndex: status.TransactionIndex,
		PendingProposals: status.PendingProposals,
		Healthy:          true,
	}
}

// Stop never blocks, so it is safe to call on a service that never started.
func (x *RunnerService) Stop() {
	log.Debugf("[%s] Stopping service", x.name)
	select {
	case x.stop <- true:
	default:
	}
}

func NewRunnerService(name string, runner Runner, wg *sync.WaitGroup, interval time.Duration) *RunnerService {
	if name == "" || runner == nil || wg == nil || interval <= 0 {
		log.Debug("[RUNNER] Invalid parameters for runner service")
		return nil
	}

	return &RunnerService{
		name:     name,
		runner:   runner,
		wg:       wg,
		stop:     make(chan bool, 1),
		interval: interval,
		health: models.ServiceHealth{
			Name: name,
		},
	}
}
