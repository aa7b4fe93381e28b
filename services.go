package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/squads-treasury/app"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/treasury"
)

// ServiceFactory builds a watch service, or an empty one when the service is disabled.
type ServiceFactory func(wg *sync.WaitGroup, s *session) models.Service

func newProposalMonitorService(wg *sync.WaitGroup, s *session) models.Service {
	config := app.Config.ProposalMonitor
	if !config.Enabled {
		log.Debug("[WATCH] Proposal monitor disabled")
		return models.NewEmptyService(wg)
	}

	runner := treasury.NewProposalMonitorRunner(s.treasury.Queries(), config.PageSize)
	service := app.NewRunnerService(treasury.ProposalMonitorName, runner, wg, time.Duration(config.IntervalMillis)*time.Millisecond)
	if service == nil {
		return models.NewEmptyService(wg)
	}
	return service
}

func GetServiceFactories() map[string]ServiceFactory {
	return map[string]ServiceFactory{
		treasury.ProposalMonitorName: newProposalMonitorService,
	}
}

// CreateServices builds every registered service in a stable order.
func CreateServices(wg *sync.WaitGroup, s *session) []models.Service {
	factories := GetServiceFactories()
	services := make([]models.Service, 0, len(factories))
	for _, name := range []string{treasury.ProposalMonitorName} {
		services = append(services, factories[name](wg, s))
	}
	return services
}

func newHealthService(wg *sync.WaitGroup, s *session, services []models.Service) models.Service {
	config := app.Config.HealthCheck
	if !config.Enabled || app.DB == nil {
		return models.NewEmptyService(wg)
	}

	walletAddress := ""
	if s.wallet != nil {
		walletAddress = s.wallet.PublicKey().String()
	}
	multisigAddress := ""
	if !s.settings.MultisigAddress.IsZero() {
		multisigAddress = s.settings.MultisigAddress.String()
	}

	healthCheck := app.NewHealthCheck(walletAddress, multisigAddress)
	healthCheck.SetServices(services)
	service := app.NewRunnerService(app.HealthServiceName, healthCheck, wg, time.Duration(config.IntervalMillis)*time.Millisecond)
	if service == nil {
		return models.NewEmptyService(wg)
	}
	return service
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Monitor proposals of the active multisig until interrupted",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			if err := s.client.ValidateNetwork(); err != nil {
				return fmt.Errorf("failed to validate network: %w", err)
			}

			var wg sync.WaitGroup
			services := CreateServices(&wg, s)
			services = append(services, newHealthService(&wg, s, services))

			var metrics *app.MetricsServer
			if app.Config.Metrics.Enabled {
				metrics = app.NewMetricsServer(app.Config.Metrics.ListenAddress)
				go metrics.Start()
			}

			wg.Add(len(services))
			for _, service := range services {
				go service.Start()
			}
			log.Info("[WATCH] Started services")

			<-cmd.Context().Done()

			log.Debug("[WATCH] Gracefully shutting down services...")
			for _, service := range services {
				service.Stop()
			}
			wg.Wait()
			if metrics != nil {
				metrics.Stop()
			}
			log.Debug("[WATCH] Services gracefully stopped")
			return nil
		}),
	}
}
