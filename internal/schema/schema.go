package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/powermarket/internal/commit"
)

//go:embed cue/market.cue
var marketCUE string

// Name identifies an off-ledger payload schema.
type Name string

const (
	Demand    Name = "Demand"
	Supply    Name = "Supply"
	Agreement Name = "Agreement"
	Matcher   Name = "Matcher"
)

// Names lists every schema compiled into a Validator.
var Names = []Name{Demand, Supply, Agreement, Matcher}

// Validator checks payloads against the compiled market schemas.
// A cue.Context is not safe for concurrent use, so every evaluation
// holds mu.
type Validator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[Name]cue.Value
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(marketCUE, cue.Filename("market.cue"))
	if err := root.Err(); err != nil {
		return nil, formatCUEError("", err)
	}

	defs := make(map[Name]cue.Value, len(Names))
	for _, name := range Names {
		def := root.LookupPath(cue.ParsePath("#" + string(name)))
		if !def.Exists() {
			return nil, fmt.Errorf("schema %s: definition #%s not found", name, name)
		}
		defs[name] = def
	}

	return &Validator{ctx: ctx, defs: defs}, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// Default returns a process-wide Validator.
// The embedded schemas are fixed at build time, so a compile failure
// here is a programming error and panics.
func Default() *Validator {
	defaultOnce.Do(func() {
		v, err := New()
		if err != nil {
			panic(fmt.Sprintf("schema: compile embedded schemas: %v", err))
		}
		defaultValidator = v
	})
	return defaultValidator
}

// Commit validates payload and, only if it conforms, hashes it.
// The schema sees exactly the canonical bytes that are hashed.
func (v *Validator) Commit(name Name, payload any) (commit.Commitment, error) {
	c, err := commit.Commit(payload)
	if err != nil {
		return commit.Commitment{}, &ValidationError{
			Schema: name,
			Issues: []Issue{{Message: err.Error()}},
		}
	}
	if err := v.validateJSON(name, c.Canonical); err != nil {
		return commit.Commitment{}, err
	}
	return c, nil
}

func (v *Validator) validateJSON(name Name, doc []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	def, ok := v.defs[name]
	if !ok {
		return fmt.Errorf("schema %q is not defined", name)
	}

	data := v.ctx.CompileBytes(doc, cue.Filename(string(name)+".json"))
	if err := data.Err(); err != nil {
		return formatCUEError(name, err)
	}

	unified := def.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(name, err)
	}
	return nil
}
