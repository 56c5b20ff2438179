package config

// Config holds all tsender configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network"`
	DefaultWallet  string              `json:"default_wallet"`
	RPCAlgorithm   string              `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	CustomRPCs     map[string][]string `json:"custom_rpcs"`
	Contracts      map[string]string   `json:"contracts"`       // chain name → TSender address override
	ApprovalPolicy string              `json:"approval_policy"` // "exact" | "unlimited"
	ConfirmTimeout int                 `json:"confirm_timeout"` // seconds
	ServerAddr     string              `json:"server_addr"`
	LogLevel       string              `json:"log_level"`
	SyncSource     string              `json:"sync_source,omitempty"` // deployments manifest URL
	LastSynced     string              `json:"last_synced,omitempty"` // RFC 3339

	// internal: config dir path used for Save()
	configDir string
	// internal: TSENDER_RPC_URL, never persisted
	rpcOverride string
	// internal: the applied env overlay and the values it replaced
	env    *Env
	preEnv *Config
}

// Env is the environment overlay, read with the TSENDER_ prefix.
type Env struct {
	Network        string `envconfig:"NETWORK"`
	Wallet         string `envconfig:"WALLET"`
	RPCURL         string `envconfig:"RPC_URL"`
	ApprovalPolicy string `envconfig:"APPROVAL_POLICY"`
	ConfirmTimeout int    `envconfig:"CONFIRM_TIMEOUT"`
	ServerAddr     string `envconfig:"SERVER_ADDR"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	PrivateKey     string `envconfig:"PRIVATE_KEY"` // hex key for an ephemeral signing wallet
}
