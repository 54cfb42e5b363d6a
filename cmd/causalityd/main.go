// Command causalityd wires the core's components into a running process:
// load configuration, build the content-addressed store, the resource and
// capability registries, the fact log, the validator pipeline and the
// router, register every domain named in the topology file (or a single
// default local domain if none is given), optionally recover any
// transactions left prepared by a prior crash, then block until asked to
// shut down.
//
// This is a wiring entrypoint, not a network service: causality has no
// built-in request surface (see the core package docs). A host process
// embeds pkg/router directly and calls Submit/SubmitTransaction itself;
// causalityd exists to prove the wiring compiles and runs end to end, and
// as a template for that embedding.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/causalityco/causality/pkg/capability"
	"github.com/causalityco/causality/pkg/config"
	"github.com/causalityco/causality/pkg/domain"
	"github.com/causalityco/causality/pkg/domain/evmadapter"
	"github.com/causalityco/causality/pkg/domain/local"
	"github.com/causalityco/causality/pkg/factlog"
	"github.com/causalityco/causality/pkg/logging"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/resource"
	"github.com/causalityco/causality/pkg/router"
	"github.com/causalityco/causality/pkg/store"
	"github.com/causalityco/causality/pkg/validator"
)

func main() {
	topologyPath := flag.String("topology", "", "path to a YAML topology file (optional; a single local domain is used if omitted)")
	flag.Parse()

	if err := run(*topologyPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(topologyPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(&logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	var topo *config.Topology
	if topologyPath != "" {
		topo, err = config.LoadTopology(topologyPath)
		if err != nil {
			return fmt.Errorf("load topology: %w", err)
		}
		if err := topo.Validate(); err != nil {
			return fmt.Errorf("invalid topology: %w", err)
		}
	} else {
		topo = &config.Topology{
			Domains: []config.DomainSpec{{Id: cfg.LocalDomainID, Kind: "local"}},
			Router:  config.RouterSpec{Policy: "fixed", RecoverOnStart: cfg.RecoverOnStart},
		}
	}

	resBackend, err := newBackend(cfg, "resources")
	if err != nil {
		return fmt.Errorf("open resource store: %w", err)
	}
	factsBackend, err := newBackend(cfg, "facts")
	if err != nil {
		return fmt.Errorf("open fact log store: %w", err)
	}
	res := resource.New(store.New(resBackend))
	facts := factlog.New(store.New(factsBackend))
	// An operator wires its real issuer keys in here; an empty resolver
	// fails every capability closed rather than silently trusting them.
	caps := capability.NewRegistry(capability.StaticKeyResolver{})
	pipeline := validator.NewPipeline(caps, res, facts)
	rt := router.New(res, facts, pipeline)

	for _, d := range topo.Domains {
		adapter, err := buildDomain(cfg, d, res, facts)
		if err != nil {
			return fmt.Errorf("build domain %s: %w", d.Id, err)
		}
		rt.RegisterDomain(adapter)
		log.WithDomain(d.Id).Info("domain registered", "kind", d.Kind)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if topo.Router.RecoverOnStart {
		if err := rt.Recover(ctx); err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		log.Info("startup recovery complete")
	}

	log.Info("causalityd ready", "domains", len(topo.Domains))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	log.Info("causalityd stopped")
	return nil
}

// newBackend opens the store.Backend cfg.StoreBackend names: an in-memory
// map for "memory", or a cometbft-db goleveldb instance under cfg.DataDir
// for "cometbftdb", one physical database per logical store so the
// resource, fact, and witness stores don't collide on disk.
func newBackend(cfg *config.Config, name string) (store.Backend, error) {
	switch cfg.StoreBackend {
	case "cometbftdb":
		db, err := dbm.NewGoLevelDB(name, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open %s db: %w", name, err)
		}
		return store.NewCometBFTBackend(db), nil
	default:
		return store.NewMemoryBackend(), nil
	}
}

func buildDomain(cfg *config.Config, d config.DomainSpec, res *resource.Manager, facts *factlog.Log) (domain.Adapter, error) {
	witnessBackend, err := newBackend(cfg, "witness-"+d.Id)
	if err != nil {
		return nil, fmt.Errorf("open witness store: %w", err)
	}

	switch d.Kind {
	case "local":
		return local.New(operation.DomainId(d.Id), res, facts, witnessBackend)
	case "evm":
		inner, err := local.New(operation.DomainId(d.Id), res, facts, witnessBackend)
		if err != nil {
			return nil, err
		}
		evmWitnessBackend, err := newBackend(cfg, "evm-witness-"+d.Id)
		if err != nil {
			return nil, fmt.Errorf("open evm witness store: %w", err)
		}
		return evmadapter.New(inner, d.ChainID, evmWitnessBackend), nil
	default:
		return nil, fmt.Errorf("unknown domain kind %q", d.Kind)
	}
}
