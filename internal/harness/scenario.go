package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/powermarket/internal/ledger"
)

// Scenario is one market script.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Actors maps actor names to hex private keys. An empty key selects
	// the development account with the same name.
	Actors map[string]string `yaml:"actors"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one market operation.
type Step struct {
	Actor string `yaml:"actor"`
	Op    string `yaml:"op"`

	// ID is the target of delete/approve/set_matcher.
	ID *uint64 `yaml:"id,omitempty"`

	// Demand and Supply are the parties of create_agreement.
	Demand *uint64 `yaml:"demand,omitempty"`
	Supply *uint64 `yaml:"supply,omitempty"`

	// Asset is the asset of create_supply.
	Asset *uint64 `yaml:"asset,omitempty"`

	// Matchers are actor names registered by create_asset.
	Matchers []string `yaml:"matchers,omitempty"`

	// Props is the off-ledger payload; for set_matcher the matcher
	// properties, for create_agreement the terms.
	Props map[string]any `yaml:"props,omitempty"`

	// MatcherProps is the initial matcher payload of create_agreement.
	MatcherProps map[string]any `yaml:"matcher_props,omitempty"`

	// ExpectError is the error code the step must fail with. Empty means
	// the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the market after the steps ran.
type Assertion struct {
	// Type is one of AssertState, AssertCount, AssertListed.
	Type string `yaml:"type"`

	// Kind is the entity kind (Demand, Supply, Agreement).
	Kind ledger.Kind `yaml:"kind"`

	// ID is the agreement checked by AssertState.
	ID uint64 `yaml:"id,omitempty"`

	// State is the expected agreement state name.
	State string `yaml:"state,omitempty"`

	// Count is the expected list length (AssertCount) or number of live
	// entities (AssertListed).
	Count int `yaml:"count"`

	// Excluded ids must not be enumerated (AssertListed).
	Excluded []uint64 `yaml:"excluded,omitempty"`
}

// Assertion types.
const (
	AssertState  = "state"
	AssertCount  = "count"
	AssertListed = "listed"
)

// Step operations.
const (
	OpCreateAsset     = "create_asset"
	OpCreateDemand    = "create_demand"
	OpDeleteDemand    = "delete_demand"
	OpCreateSupply    = "create_supply"
	OpCreateAgreement = "create_agreement"
	OpApproveSupply   = "approve_supply"
	OpApproveDemand   = "approve_demand"
	OpSetMatcher      = "set_matcher"
)

// LoadScenario reads and validates a scenario file. Unknown YAML fields
// are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Actors) == 0 {
		return fmt.Errorf("actors map is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(s *Scenario, step Step) error {
	if _, ok := s.Actors[step.Actor]; !ok {
		return fmt.Errorf("unknown actor %q", step.Actor)
	}
	for _, name := range step.Matchers {
		if _, ok := s.Actors[name]; !ok {
			return fmt.Errorf("unknown matcher actor %q", name)
		}
	}

	switch step.Op {
	case OpCreateAsset:
	case OpCreateDemand:
		if step.Props == nil {
			return fmt.Errorf("%s requires props", step.Op)
		}
	case OpCreateSupply:
		if step.Asset == nil || step.Props == nil {
			return fmt.Errorf("%s requires asset and props", step.Op)
		}
	case OpCreateAgreement:
		if step.Demand == nil || step.Supply == nil || step.Props == nil {
			return fmt.Errorf("%s requires demand, supply and props", step.Op)
		}
	case OpDeleteDemand, OpApproveSupply, OpApproveDemand:
		if step.ID == nil {
			return fmt.Errorf("%s requires id", step.Op)
		}
	case OpSetMatcher:
		if step.ID == nil || step.Props == nil {
			return fmt.Errorf("%s requires id and props", step.Op)
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Kind {
	case ledger.KindDemand, ledger.KindSupply, ledger.KindAgreement:
	default:
		return fmt.Errorf("kind must be Demand, Supply or Agreement, got %q", a.Kind)
	}

	switch a.Type {
	case AssertState:
		if a.Kind != ledger.KindAgreement {
			return fmt.Errorf("state assertions apply to agreements only")
		}
		if a.State == "" {
			return fmt.Errorf("state is required")
		}
	case AssertCount, AssertListed:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
