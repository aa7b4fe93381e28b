package app

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func envString(name string, target *string) {
	if value := os.Getenv(name); value != "" {
		*target = value
	}
}

func envInt64(name string, target *int64) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Warnf("[ENV] Error parsing %s: %s", name, err.Error())
		return
	}
	*target = parsed
}

func envInt(name string, target *int) {
	parsed := int64(*target)
	envInt64(name, &parsed)
	*target = int(parsed)
}

func envUint64(name string, target *uint64) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		log.Warnf("[ENV] Error parsing %s: %s", name, err.Error())
		return
	}
	*target = parsed
}

func envUint32(name string, target *uint32) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		log.Warnf("[ENV] Error parsing %s: %s", name, err.Error())
		return
	}
	*target = uint32(parsed)
}

func envBool(name string, target *bool) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warnf("[ENV] Error parsing %s: %s", name, err.Error())
		return
	}
	*target = parsed
}

func readConfigFromENV(envFile string) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			log.Warn("[ENV] Error loading .env file: ", err.Error())
		}
	}

	// solana
	envString("SOLANA_RPC_URL", &Config.Solana.RPCURL)
	envInt64("SOLANA_RPC_TIMEOUT_MS", &Config.Solana.RPCTimeoutMillis)
	envString("SQUADS_PROGRAM_ID", &Config.Solana.ProgramID)
	envString("MULTISIG_ADDRESS", &Config.Solana.MultisigAddress)

	// wallet
	envString("WALLET_KEYPAIR_PATH", &Config.Wallet.KeypairPath)
	envString("WALLET_PRIVATE_KEY", &Config.Wallet.PrivateKey)
	envString("WALLET_MNEMONIC", &Config.Wallet.Mnemonic)
	envString("WALLET_GCP_KMS_KEY_NAME", &Config.Wallet.GcpKmsKeyName)

	// mongodb
	envString("MONGODB_URI", &Config.MongoDB.URI)
	envString("MONGODB_DATABASE", &Config.MongoDB.Database)
	envInt64("MONGODB_TIMEOUT_MS", &Config.MongoDB.TimeoutMillis)

	// submissions
	envInt64("CONFIRMATION_TIMEOUT_MS", &Config.Confirmation.TimeoutMillis)
	envInt64("CONFIRMATION_INTERVAL_MS", &Config.Confirmation.IntervalMillis)
	envUint64("PRIORITY_FEE_MICRO_LAMPORTS", &Config.Execution.PriorityFeeMicroLamports)
	envUint32("COMPUTE_UNIT_LIMIT", &Config.Execution.ComputeUnitLimit)
	envInt("MAX_TRANSACTION_SIZE", &Config.Execution.MaxTransactionSize)

	// cache
	envInt64("CACHE_TTL_MS", &Config.Cache.TTLMillis)
	envInt("CACHE_CAPACITY", &Config.Cache.Capacity)

	// proposal monitor
	envBool("PROPOSAL_MONITOR_ENABLED", &Config.ProposalMonitor.Enabled)
	envInt64("PROPOSAL_MONITOR_INTERVAL_MS", &Config.ProposalMonitor.IntervalMillis)
	envInt64("PROPOSAL_MONITOR_PAGE_SIZE", &Config.ProposalMonitor.PageSize)

	// health check
	envBool("HEALTH_CHECK_ENABLED", &Config.HealthCheck.Enabled)
	envInt64("HEALTH_CHECK_INTERVAL_MS", &Config.HealthCheck.IntervalMillis)

	// metrics
	envBool("METRICS_ENABLED", &Config.Metrics.Enabled)
	envString("METRICS_LISTEN_ADDRESS", &Config.Metrics.ListenAddress)

	// logging
	envString("LOG_LEVEL", &Config.Logger.Level)
	if Config.Logger.Level == "" {
		log.Debug("[ENV] Setting LogLevel to info")
		Config.Logger.Level = "info"
	}

	// google secret manager
	envBool("GOOGLE_SECRET_MANAGER_ENABLED", &Config.GoogleSecretManager.Enabled)
	envString("GOOGLE_PROJECT_ID", &Config.GoogleSecretManager.ProjectId)
	envString("GOOGLE_WALLET_SECRET_NAME", &Config.GoogleSecretManager.WalletSecretName)
}
