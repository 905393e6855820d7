// Command benornode runs a single Ben-Or binary agreement node. It reads
// its cluster configuration from a JSON file and serves the node's
// control surface over HTTP until stopped or killed.
//
//	$ go run ./cmd/benornode --config node0.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/quorumkit/benor-node/pkg/config"
	"github.com/quorumkit/benor-node/pkg/consensus"
	"github.com/quorumkit/benor-node/pkg/control"
	"github.com/quorumkit/benor-node/pkg/inbox"
	"github.com/quorumkit/benor-node/pkg/logger"
	"github.com/quorumkit/benor-node/pkg/loggerfile"
	"github.com/quorumkit/benor-node/pkg/readiness"
	"github.com/quorumkit/benor-node/pkg/transport"
	"github.com/quorumkit/benor-node/pkg/value"
)

const usagePrefix = `Runs a single Ben-Or binary agreement node.

Usage: go run ./cmd/benornode -config <path>
   or: go run ./cmd/benornode -id <id> -n <n> -f <f> -peers <id=addr,...>

OPTIONS:
`

var (
	configFlag   = flag.String("config", "", "path to the node's JSON configuration file")
	idFlag       = flag.Int("id", -1, "this node's id (with -n/-f/-peers, builds a config without a file)")
	nFlag        = flag.Int("n", 0, "cluster size")
	fFlag        = flag.Int("f", 0, "byzantine fault tolerance")
	basePortFlag = flag.Int("base-port", 9000, "base port recorded in the config; the listen address is this node's own -peers entry (or -listen), not derived from base-port")
	initFlag     = flag.Int("init", 0, "this node's initial proposal, 0 or 1")
	faultyFlag   = flag.Bool("faulty", false, "run this node as a faulty no-op participant")
	peersFlag    = flag.String("peers", "", "comma-separated id=address pairs, e.g. 0=localhost:9000,1=localhost:9001")
	listenFlag   = flag.String("listen", "", "address to listen on; overrides the config's own peer entry if set")
	debugFlag    = flag.Bool("debug", false, "enable debug logging")
	logDirFlag   = flag.String("log-dir", "logs", "directory for the per-node round trace file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stdout, usagePrefix)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("load config: %v", err)
		os.Exit(1)
	}

	logger.SetIdentifier(fmt.Sprintf("node-%d", cfg.NodeID))
	if *debugFlag {
		logger.SetFlag(logger.FLAG_DEBUG)
	} else {
		logger.SetFlag(logger.FLAG_INFO)
	}

	addr, ok := cfg.Address(cfg.NodeID)
	if !ok {
		logger.Error("config has no peer entry for nodeId %d", cfg.NodeID)
		os.Exit(1)
	}
	if *listenFlag != "" {
		addr = *listenFlag
	}

	peers := make(map[int]string, len(cfg.Peers))
	for _, p := range cfg.Peers {
		peers[p.ID] = p.Address
	}

	t := transport.New(cfg.NodeID, peers)
	barrier := readiness.New(cfg.N)

	loggerfile.SetGlobalLogDir(*logDirFlag)
	trace, err := loggerfile.NewFileLogger(fmt.Sprintf("%d/session.log", cfg.NodeID))
	if err != nil {
		logger.Warn("node %d: round trace disabled: %v", cfg.NodeID, err)
	}
	defer trace.Close()

	var node consensus.Node
	if cfg.IsFaulty {
		node = consensus.NewFaultyNode(cfg.NodeID)
		logger.Warn("node %d: running as faulty", cfg.NodeID)
	} else {
		ib := inbox.New()
		driver := consensus.NewDriver(cfg.NodeID, cfg.N, cfg.F, value.FromBit(cfg.InitialValue == 1), ib, t, consensus.WithTrace(trace))
		t.SetReceiver(driver)
		node = driver
	}

	server := control.NewServer(addr, cfg.NodeID, node, barrier)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("control server: %v", err)
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("node %d: received %s, shutting down", cfg.NodeID, sig)
	}

	node.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("control server shutdown: %v", err)
	}
}

// loadConfig builds a NodeConfig from -config, or from the individual
// -id/-n/-f/-peers flags when -config is omitted.
func loadConfig() (config.NodeConfig, error) {
	if *configFlag != "" {
		return config.Load(*configFlag)
	}
	if *idFlag < 0 {
		return config.NodeConfig{}, fmt.Errorf("either -config or -id/-n/-f/-peers must be given")
	}

	peers, err := parsePeers(*peersFlag)
	if err != nil {
		return config.NodeConfig{}, err
	}

	cfg := config.NodeConfig{
		NodeID:       *idFlag,
		N:            *nFlag,
		F:            *fFlag,
		BasePort:     *basePortFlag,
		InitialValue: *initFlag,
		IsFaulty:     *faultyFlag,
		Peers:        peers,
	}
	if err := cfg.Validate(); err != nil {
		return config.NodeConfig{}, err
	}
	return cfg, nil
}

func parsePeers(raw string) ([]config.PeerConfig, error) {
	if raw == "" {
		return nil, fmt.Errorf("-peers is required when -config is omitted")
	}
	var peers []config.PeerConfig
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed -peers entry %q, expected id=address", entry)
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed -peers id %q: %w", parts[0], err)
		}
		peers = append(peers, config.PeerConfig{ID: id, Address: parts[1]})
	}
	return peers, nil
}
