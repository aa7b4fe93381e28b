package app

import (
	"net/url"
	"os"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/dan13ram/squads-treasury/models"
)

var (
	Config models.Config
)

func readConfigFromConfigFile(configFile string) bool {
	if configFile == "" {
		log.Debug("[CONFIG] No config file provided")
		return false
	}

	log.Debug("[CONFIG] Reading config file: ", configFile)
	var yamlFile, err = os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("[CONFIG] Error reading config file %q: %s\n", configFile, err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &Config)
	if err != nil {
		log.Fatalf("[CONFIG] Error unmarshalling config file %q: %s\n", configFile, err.Error())
	}
	log.Debug("[CONFIG] Read config file")
	return true
}

// InitConfig loads the yaml file, applies environment overrides, reads
// missing wallet material from secret manager and validates the result.
func InitConfig(configFile string, envFile string) {
	log.Debug("[CONFIG] Initializing config")
	Config = models.Config{}
	readConfigFromConfigFile(configFile)
	readConfigFromENV(envFile)
	readKeysFromGSM()
	validateConfig()
	log.Info("[CONFIG] Config initialized")
}

func validatePublicKey(name string, value string) {
	if value == "" {
		return
	}
	if _, err := solana.PublicKeyFromBase58(value); err != nil {
		log.Fatalf("[CONFIG] %s is not a valid address: %s", name, err.Error())
	}
}

func validateConfig() {
	log.Debug("[CONFIG] Validating config")

	if Config.Solana.RPCURL == "" {
		log.Fatal("[CONFIG] Solana.RPCURL is required")
	}
	if _, err := url.ParseRequestURI(Config.Solana.RPCURL); err != nil {
		log.Fatal("[CONFIG] Solana.RPCURL is invalid: ", err.Error())
	}
	validatePublicKey("Solana.ProgramID", Config.Solana.ProgramID)
	validatePublicKey("Solana.MultisigAddress", Config.Solana.MultisigAddress)

	if Config.MongoDB.URI != "" {
		if Config.MongoDB.Database == "" {
			log.Fatal("[CONFIG] MongoDB.Database is required when MongoDB.URI is set")
		}
		if Config.MongoDB.TimeoutMillis <= 0 {
			log.Fatal("[CONFIG] MongoDB.TimeoutMillis is required when MongoDB.URI is set")
		}
	}

	if Config.Confirmation.TimeoutMillis < 0 || Config.Confirmation.IntervalMillis < 0 {
		log.Fatal("[CONFIG] Confirmation timings cannot be negative")
	}
	if Config.Execution.MaxTransactionSize < 0 {
		log.Fatal("[CONFIG] Execution.MaxTransactionSize cannot be negative")
	}

	if Config.ProposalMonitor.Enabled && Config.ProposalMonitor.IntervalMillis <= 0 {
		log.Fatal("[CONFIG] ProposalMonitor.IntervalMillis is required when enabled")
	}
	if Config.HealthCheck.Enabled {
		if Config.HealthCheck.IntervalMillis <= 0 {
			log.Fatal("[CONFIG] HealthCheck.IntervalMillis is required when enabled")
		}
		if Config.MongoDB.URI == "" {
			log.Fatal("[CONFIG] HealthCheck requires MongoDB.URI")
		}
	}
	if Config.Metrics.Enabled && Config.Metrics.ListenAddress == "" {
		log.Fatal("[CONFIG] Metrics.ListenAddress is required when enabled")
	}

	log.Debug("[CONFIG] Config validated")
}
