// Command driftnode wires the chain store, mempool, gossip transport,
// miner, and transaction generator into a single running node.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pillaiarjun/driftnode/pkg/chain"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/config"
	"github.com/pillaiarjun/driftnode/pkg/generator"
	"github.com/pillaiarjun/driftnode/pkg/gossip"
	"github.com/pillaiarjun/driftnode/pkg/logging"
	"github.com/pillaiarjun/driftnode/pkg/mempool"
	"github.com/pillaiarjun/driftnode/pkg/miner"
	"github.com/pillaiarjun/driftnode/pkg/p2p"
)

var log = logging.For("main")

func main() {
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)

	listenAddr := runCmd.String("addr", ":9000", "gossip listen address")
	seedNode := runCmd.String("seed", "", "seed peer address to connect to")
	statusAddr := runCmd.String("status", ":8090", "status HTTP endpoint address")
	mine := runCmd.Bool("mine", false, "start the miner at boot")
	generate := runCmd.Bool("generate", false, "start the transaction generator at boot")
	jsonLogs := runCmd.Bool("json-logs", false, "emit logs as JSON instead of console format")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd.Parse(os.Args[2:])
		startNode(*listenAddr, *seedNode, *statusAddr, *mine, *generate, *jsonLogs)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  driftnode run [flags]")
	fmt.Println("    -addr string       gossip listen address (default \":9000\")")
	fmt.Println("    -seed string       seed peer address to connect to")
	fmt.Println("    -status string     status HTTP endpoint address (default \":8090\")")
	fmt.Println("    -mine              start the miner at boot")
	fmt.Println("    -generate          start the transaction generator at boot")
	fmt.Println("    -json-logs         emit logs as JSON instead of console format")
}

func startNode(listenAddr, seedAddr, statusAddr string, startMiner, startGenerator, jsonLogs bool) {
	if jsonLogs {
		logging.SetJSON()
	}

	cfg := config.Testnet
	log.Info().Str("network", cfg.Name).Msg("starting driftnode")

	store := chain.New()
	pool := mempool.New()

	var seeds []string
	if seedAddr != "" {
		seeds = append(seeds, seedAddr)
	}
	server := p2p.NewServer(p2p.ServerConfig{
		ListenAddr: listenAddr,
		SeedNodes:  seeds,
	})

	dispatcher := gossip.NewDispatcher(cfg.NumGossipWorkers, server.Inbound(), server, store, pool)
	dispatcher.Start()

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start gossip server")
	}
	defer server.Stop()

	m := miner.New(store, pool, server)
	go m.Run()
	if startMiner {
		m.Start(cfg.MinerLambdaMicros)
	}

	g := generator.New(store, pool, server)
	go g.Run()
	if startGenerator {
		g.Start(cfg.GeneratorLambdaMicros)
	}

	go serveStatus(statusAddr, store, pool)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("shutting down")
	m.Exit()
	g.Exit()
}

// statusResponse is the demonstration /status payload — outside the
// hard core, just enough to see the node is alive over HTTP.
type statusResponse struct {
	Tip         string `json:"tip"`
	Height      uint32 `json:"height"`
	MempoolSize int    `json:"mempool_size"`
}

func serveStatus(addr string, store *chain.ChainStore, pool *mempool.Mempool) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Tip:         store.Tip().Hex(),
			Height:      store.Length(),
			MempoolSize: pool.Size(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		addrHex := r.URL.Query().Get("addr")
		addr, err := chainhash.Hash160FromHex(addrHex)
		if err != nil {
			http.Error(w, "invalid address", http.StatusBadRequest)
			return
		}
		bal := store.StateSnapshot().Balances([]chainhash.Hash160{addr})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]uint64{addrHex: bal[addr]})
	})

	log.Info().Str("addr", addr).Msg("status endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("status server stopped")
	}
}
