package daemon

const (
	HomeFlag = "home"

	forceFlag        = "force"
	generateKeysFlag = "generate-keys"
	logFormatFlag    = "log-format"
	metricsAddrFlag  = "metrics-addr"
	chainIDFlag      = "chain-id"
)
