package models

type Config struct {
	GoogleSecretManager GoogleSecretManagerConfig `yaml:"google_secret_manager" json:"google_secret_manager"`
	Logger              LoggerConfig              `yaml:"logger" json:"logger"`
	MongoDB             MongoConfig               `yaml:"mongodb" json:"mongo_db"`
	Solana              SolanaConfig              `yaml:"solana" json:"solana"`
	Wallet              WalletConfig              `yaml:"wallet" json:"wallet"`
	Confirmation        ConfirmationConfig        `yaml:"confirmation" json:"confirmation"`
	Execution           ExecutionConfig           `yaml:"execution" json:"execution"`
	Cache               CacheConfig               `yaml:"cache" json:"cache"`
	ProposalMonitor     ServiceConfig             `yaml:"proposal_monitor" json:"proposal_monitor"`
	HealthCheck         ServiceConfig             `yaml:"health_check" json:"health_check"`
	Metrics             MetricsConfig             `yaml:"metrics" json:"metrics"`
}

type GoogleSecretManagerConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	ProjectId        string `yaml:"project_id" json:"project_id"`
	WalletSecretName string `yaml:"wallet_secret_name" json:"wallet_secret_name"`
}

type LoggerConfig struct {
	Level string `yaml:"level" json:"level"`
}

type MongoConfig struct {
	URI           string `yaml:"uri" json:"uri"`
	Database      string `yaml:"database" json:"database"`
	TimeoutMillis int64  `yaml:"timeout_ms" json:"timeout_ms"`
}

type SolanaConfig struct {
	RPCURL           string `yaml:"rpc_url" json:"rpcurl"`
	RPCTimeoutMillis int64  `yaml:"rpc_timeout_ms" json:"rpc_timeout_ms"`
	ProgramID        string `yaml:"program_id" json:"program_id"`
	MultisigAddress  string `yaml:"multisig_address" json:"multisig_address"`
}

type WalletConfig struct {
	KeypairPath   string `yaml:"keypair_path" json:"keypair_path"`
	PrivateKey    string `yaml:"private_key" json:"private_key"`
	Mnemonic      string `yaml:"mnemonic" json:"mnemonic"`
	GcpKmsKeyName string `yaml:"gcp_kms_key_name" json:"gcp_kms_key_name"`
}

type ConfirmationConfig struct {
	TimeoutMillis  int64 `yaml:"timeout_ms" json:"timeout_ms"`
	IntervalMillis int64 `yaml:"interval_ms" json:"interval_ms"`
}

type ExecutionConfig struct {
	PriorityFeeMicroLamports uint64 `yaml:"priority_fee_micro_lamports" json:"priority_fee_micro_lamports"`
	ComputeUnitLimit         uint32 `yaml:"compute_unit_limit" json:"compute_unit_limit"`
	MaxTransactionSize       int    `yaml:"max_transaction_size" json:"max_transaction_size"`
}

type CacheConfig struct {
	TTLMillis int64 `yaml:"ttl_ms" json:"ttl_ms"`
	Capacity  int   `yaml:"capacity" json:"capacity"`
}

type ServiceConfig struct {
	Enabled        bool  `yaml:"enabled" json:"enabled"`
	IntervalMillis int64 `yaml:"interval_ms" json:"interval_ms"`
	PageSize       int64 `yaml:"page_size" json:"page_size"`
}

type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
}
