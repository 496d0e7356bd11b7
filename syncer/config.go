package syncer

import "time"

// Config carries the service configuration, populated from environment
// variables.
type Config struct {
	RPCURL          string        `envconfig:"RPC_URL" required:"true"`
	ContractAddress string        `envconfig:"CONTRACT_ADDRESS" required:"true"`
	Port            int           `envconfig:"PORT" default:"3000"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	StateFile       string        `envconfig:"STATE_FILE" default:"asp-state.json"`

	// ResyncFromBlock overrides the persisted watermark at startup.
	ResyncFromBlock *uint64 `envconfig:"RESYNC_FROM_BLOCK"`

	// DisableResync downgrades the divergence rebuild to a warning.
	// Development only.
	DisableResync bool `envconfig:"ASP_DISABLE_RESYNC"`
}
