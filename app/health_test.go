package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dan13ram/squads-treasury/app/mocks"
	"github.com/dan13ram/squads-treasury/models"
)

func NewTestHealthCheck() *HealthCheckRunner {
	return &HealthCheckRunner{
		hostname:        "hostname",
		walletAddress:   "wallet",
		multisigAddress: "multisig",
	}
}

type MockService struct {
	pending int64
}

func (e *MockService) Start() {}

func (e *MockService) Stop() {}

const MockServiceName = "mock"

func (e *MockService) Health() models.ServiceHealth {
	return models.ServiceHealth{
		Name:             MockServiceName,
		LastSyncTime:     time.Now(),
		NextSyncTime:     time.Now(),
		PendingProposals: e.pending,
		Healthy:          true,
	}
}

func TestHealthStatus(t *testing.T) {
	x := NewTestHealthCheck()
	assert.Equal(t, models.RunnerStatus{}, x.Status())

	wg := &sync.WaitGroup{}
	x.SetServices([]models.Service{
		models.NewEmptyService(wg),
		&MockService{pending: 3},
	})
	assert.Equal(t, int64(3), x.Status().PendingProposals)
}

func TestServiceHealths(t *testing.T) {
	x := NewTestHealthCheck()
	wg := &sync.WaitGroup{}
	x.SetServices([]models.Service{
		models.NewEmptyService(wg),
		models.NewEmptyService(wg),
		&MockService{},
	})

	assert.Len(t, x.services, 3)

	healths := x.ServiceHealths()
	assert.Len(t, healths, 1)
	assert.Equal(t, MockServiceName, healths[0].Name)
}

func TestPostHealth(t *testing.T) {
	filter := bson.M{
		"hostname":         "hostname",
		"multisig_address": "multisig",
	}

	t.Run("No Error", func(t *testing.T) {
		x := NewTestHealthCheck()
		x.SetServices([]models.Service{&MockService{}})

		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB
		t.Cleanup(func() { DB = nil })

		call := mockDB.EXPECT().UpsertOne(models.CollectionHealthChecks, filter, mock.Anything)
		call.Run(func(_ string, _ interface{}, arg interface{}) {
			update := arg.(bson.M)

			onInsert := update["$setOnInsert"].(bson.M)
			assert.Equal(t, "hostname", onInsert["hostname"])
			assert.Equal(t, "multisig", onInsert["multisig_address"])
			assert.NotNil(t, onInsert["created_at"])

			onUpdate := update["$set"].(bson.M)
			assert.Equal(t, "wallet", onUpdate["wallet_address"])
			assert.Equal(t, true, onUpdate["healthy"])
			assert.Len(t, onUpdate["service_healths"], 1)
		})
		call.Return(primitive.NewObjectID(), nil)

		assert.True(t, x.PostHealth())
	})

	t.Run("With Error", func(t *testing.T) {
		x := NewTestHealthCheck()

		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB
		t.Cleanup(func() { DB = nil })

		mockDB.EXPECT().UpsertOne(models.CollectionHealthChecks, filter, mock.Anything).Return(nil, errors.New("error"))

		assert.False(t, x.PostHealth())
	})
}

func TestNewHealthCheck(t *testing.T) {
	x := NewHealthCheck("wallet", "multisig")
	assert.NotEmpty(t, x.hostname)
	assert.Equal(t, "wallet", x.walletAddress)
	assert.Equal(t, "multisig", x.multisigAddress)
}
