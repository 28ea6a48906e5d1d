package client

import (
	"fmt"
	"time"

	"bitbucket.org/ConcurrentDragon/storage-market/internal/config"
	"bitbucket.org/ConcurrentDragon/storage-market/internal/connection"
	"bitbucket.org/ConcurrentDragon/storage-market/ledger"
	"bitbucket.org/ConcurrentDragon/storage-market/substrate"
)

// The two fixed network endpoints.
const (
	MainnetEndpoint = "wss://rpc.crust.network"
	TestnetEndpoint = "wss://rpc-rocky.crust.network"
)

const (
	NetMain = "main"
	NetTest = "test"
)

type Options struct {
	// Seeds is the signing seed phrase, required by NewSigning.
	Seeds string
	// Net selects between the two fixed endpoints: "main" (default) or
	// "test".
	Net string
	// Endpoint overrides the endpoint selected by Net.
	Endpoint string
	// IdleTimeout is the idle-disconnect delay. 0 keeps the default of
	// 60s; a negative value disables the idle timer.
	IdleTimeout time.Duration
	// SubmissionTimeout bounds one submission end to end. 0 keeps the
	// default of 10m.
	SubmissionTimeout time.Duration

	// NewLedger creates the chain transport. Defaults to substrate.New.
	NewLedger func(endpoint string) (ledger.Client, error)
	// NewSigner derives the signing key from Seeds once at construction.
	// Defaults to substrate.NewSigner.
	NewSigner func(seeds string, client ledger.Client) (ledger.Signer, error)
}

func (o Options) endpoint() (string, error) {
	if o.Endpoint != "" {
		return o.Endpoint, nil
	}
	switch o.Net {
	case "", NetMain:
		return MainnetEndpoint, nil
	case NetTest:
		return TestnetEndpoint, nil
	}
	return "", fmt.Errorf("unknown net %q, expected %q or %q", o.Net, NetMain, NetTest)
}

func (o Options) idleTimeout() time.Duration {
	if o.IdleTimeout < 0 {
		return 0
	}
	if o.IdleTimeout == 0 {
		return connection.DefaultIdleTimeout
	}
	return o.IdleTimeout
}

func (o Options) newLedger(endpoint string) (ledger.Client, error) {
	if o.NewLedger != nil {
		return o.NewLedger(endpoint)
	}
	return substrate.New(endpoint)
}

func (o Options) newSigner(client ledger.Client) (ledger.Signer, error) {
	if o.NewSigner != nil {
		return o.NewSigner(o.Seeds, client)
	}
	return substrate.NewSigner(o.Seeds, client)
}

// OptionsFromEnv loads the yaml config named by the STORAGE_MARKET_CONFIG
// environment variable.
func OptionsFromEnv() (Options, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return Options{}, err
	}
	return OptionsFromConfigFile(path)
}

// OptionsFromConfigFile loads the yaml config at path and converts it to
// Options. Pass the result to New or NewSigning.
func OptionsFromConfigFile(path string) (Options, error) {
	err := config.LoadConfig(path)
	if err != nil {
		return Options{}, err
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		Seeds:    cfg.Seeds,
		Net:      cfg.Net,
		Endpoint: cfg.Endpoint,
	}
	if cfg.IdleTimeoutSeconds != 0 {
		opts.IdleTimeout = time.Duration(cfg.IdleTimeoutSeconds) * time.Second
	}
	if cfg.SubmissionTimeoutSeconds != 0 {
		opts.SubmissionTimeout = time.Duration(cfg.SubmissionTimeoutSeconds) * time.Second
	}
	return opts, nil
}
