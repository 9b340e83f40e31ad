// Package config holds the network-wide constants a driftnode process
// is parameterized by.
package config

import "time"

// NetworkConfig bundles the parameters a running node needs at startup.
type NetworkConfig struct {
	Name string

	// NumGossipWorkers is the size of the gossip worker pool (spec §4.6's
	// num_worker).
	NumGossipWorkers int

	// MinerLambdaMicros is the sleep interval passed to Miner.Start when
	// the node begins mining automatically at boot. Zero means mine
	// flat-out with no throttling.
	MinerLambdaMicros uint64

	// GeneratorLambdaMicros is the equivalent throttle for the
	// transaction generator.
	GeneratorLambdaMicros uint64
}

// MiningWallClockLimit is how long the miner runs before
// self-terminating with telemetry (spec §4.4). The generator does not
// consult it; it runs until Exit.
const MiningWallClockLimit = 300 * time.Second

// Testnet is the default configuration used by cmd/driftnode.
var Testnet = NetworkConfig{
	Name:                  "driftnode-testnet",
	NumGossipWorkers:      4,
	MinerLambdaMicros:     0,
	GeneratorLambdaMicros: 1_000_000,
}
