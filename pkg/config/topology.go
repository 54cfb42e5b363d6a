// Topology configuration: a YAML file describing a multi-domain
// deployment (which domain adapters exist, how each one's store is backed,
// and the router's policy), loaded with the same YAML-plus-env-substitution
// shape as the rest of this package.

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Topology describes every domain a Router should have registered at
// startup, plus the cross-domain commit timing the deployment wants.
type Topology struct {
	Domains []DomainSpec `yaml:"domains"`
	Router  RouterSpec   `yaml:"router"`
}

// DomainSpec configures one domain.Adapter.
type DomainSpec struct {
	Id      string `yaml:"id"`
	Kind    string `yaml:"kind"` // "local" or "evm"
	ChainID uint64 `yaml:"chain_id,omitempty"` // evm only
	Store   StoreSpec `yaml:"store"`
}

// StoreSpec describes a domain's backing content-addressed store. It is
// defaulted and checked by Validate; cmd/causalityd does not read it and
// opens every store from Config.StoreBackend and Config.DataDir instead.
type StoreSpec struct {
	Backend string `yaml:"backend"` // "memory" or "cometbftdb"
	Path    string `yaml:"path,omitempty"`
}

// RouterSpec configures the router's cross-domain behavior.
type RouterSpec struct {
	Policy          string   `yaml:"policy"` // "fixed" is the only built-in
	PrepareTimeout  Duration `yaml:"prepare_timeout"`
	RecoverOnStart  bool     `yaml:"recover_on_start"`
}

// Duration wraps time.Duration for YAML unmarshaling as a Go duration
// string ("30s", "5m") rather than a bare integer of ambiguous unit.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} with the
// environment, so a topology file can be checked in without secrets.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadTopology reads and parses a topology file, substituting ${VAR} env
// references before unmarshaling.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read topology %s: %w", path, err)
	}
	expanded := substituteEnvVars(string(data))

	var t Topology
	if err := yaml.Unmarshal([]byte(expanded), &t); err != nil {
		return nil, fmt.Errorf("config: parse topology %s: %w", path, err)
	}
	t.applyDefaults()
	return &t, nil
}

func (t *Topology) applyDefaults() {
	if t.Router.Policy == "" {
		t.Router.Policy = "fixed"
	}
	if t.Router.PrepareTimeout == 0 {
		t.Router.PrepareTimeout = Duration(30 * time.Second)
	}
	for i := range t.Domains {
		if t.Domains[i].Store.Backend == "" {
			t.Domains[i].Store.Backend = "memory"
		}
	}
}

// Validate checks the topology is internally consistent: every domain has
// a unique, non-empty id and a recognized kind and store backend.
func (t *Topology) Validate() error {
	var errs []string
	seen := make(map[string]bool, len(t.Domains))
	for i, d := range t.Domains {
		if d.Id == "" {
			errs = append(errs, fmt.Sprintf("domains[%d].id is required", i))
			continue
		}
		if seen[d.Id] {
			errs = append(errs, fmt.Sprintf("domains[%d].id %q is duplicated", i, d.Id))
		}
		seen[d.Id] = true

		switch d.Kind {
		case "local", "evm":
		default:
			errs = append(errs, fmt.Sprintf("domains[%d].kind %q is not one of local, evm", i, d.Kind))
		}
		if d.Kind == "evm" && d.ChainID == 0 {
			errs = append(errs, fmt.Sprintf("domains[%d].chain_id is required for kind evm", i))
		}
		switch d.Store.Backend {
		case "memory", "cometbftdb":
		default:
			errs = append(errs, fmt.Sprintf("domains[%d].store.backend %q is not one of memory, cometbftdb", i, d.Store.Backend))
		}
		if d.Store.Backend == "cometbftdb" && d.Store.Path == "" {
			errs = append(errs, fmt.Sprintf("domains[%d].store.path is required for backend cometbftdb", i))
		}
	}
	if t.Router.Policy != "fixed" {
		errs = append(errs, fmt.Sprintf("router.policy %q is not one of fixed", t.Router.Policy))
	}

	if len(errs) > 0 {
		return fmt.Errorf("topology validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
