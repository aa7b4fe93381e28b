package app

import (
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/dan13ram/squads-treasury/models"
)

const (
	HealthServiceName = "health"
)

// HealthCheckRunner reports the health of the watch services to mongo.
type HealthCheckRunner struct {
	hostname        string
	walletAddress   string
	multisigAddress string

	mu       sync.Mutex
	services []models.Service
}

var _ Runner = &HealthCheckRunner{}

func (x *HealthCheckRunner) Status() models.RunnerStatus {
	x.mu.Lock()
	defer x.mu.Unlock()
	return models.RunnerStatus{PendingProposals: x.pendingProposals()}
}

func (x *HealthCheckRunner) pendingProposals() int64 {
	var pending int64
	for _, service := range x.services {
		pending += service.Health().PendingProposals
	}
	return pending
}

func (x *HealthCheckRunner) SetServices(services []models.Service) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.services = services
}

// ServiceHealths skips placeholder services.
func (x *HealthCheckRunner) ServiceHealths() []models.ServiceHealth {
	x.mu.Lock()
	defer x.mu.Unlock()

	var healths []models.ServiceHealth
	for _, service := range x.services {
		health := service.Health()
		if health.Name == models.EmptyServiceName {
			continue
		}
		healths = append(healths, health)
	}
	return healths
}

func (x *HealthCheckRunner) PostHealth() bool {
	log.Debug("[HEALTH] Posting health")

	filter := bson.M{
		"hostname":         x.hostname,
		"multisig_address": x.multisigAddress,
	}

	onInsert := bson.M{
		"hostname":         x.hostname,
		"multisig_address": x.multisigAddress,
		"created_at":       time.Now(),
	}

	onUpdate := bson.M{
		"wallet_address":  x.walletAddress,
		"healthy":         true,
		"service_healths": x.ServiceHealths(),
		"updated_at":      time.Now(),
	}

	update := bson.M{"$set": onUpdate, "$setOnInsert": onInsert}

	if _, err := DB.UpsertOne(models.CollectionHealthChecks, filter, update); err != nil {
		log.Error("[HEALTH] Error posting health: ", err)
		return false
	}

	log.Debug("[HEALTH] Posted health")
	return true
}

func (x *HealthCheckRunner) Run() {
	x.PostHealth()
}

func NewHealthCheck(walletAddress string, multisigAddress string) *HealthCheckRunner {
	hostname, err := os.Hostname()
	if err != nil {
		log.Warn("[HEALTH] Error getting hostname: ", err)
		hostname = "unknown"
	}

	return &HealthCheckRunner{
		hostname:        hostname,
		walletAddress:   walletAddress,
		multisigAddress: multisigAddress,
	}
}
