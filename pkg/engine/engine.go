// Package engine is the boundary the host simulation calls: validate a
// character script, or assemble and run it for one tick.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/psilLang/chestvm/pkg/log"
	"github.com/psilLang/chestvm/pkg/micro"
)

// Config holds the execution limits applied to every run.
type Config struct {
	Budget     time.Duration // wall clock budget per run, <= 0 = 250ms
	QueryLimit int           // combined nearest chest/character queries per run, <= 0 = 5
	StepLimit  int           // instruction budget per run, 0 = unlimited
	Clock      micro.Clock   // nil = wall clock
}

// DefaultConfig returns a 250ms budget, 5 queries, no step limit.
func DefaultConfig() Config {
	return Config{
		Budget:     micro.DefaultBudget,
		QueryLimit: micro.DefaultQueryLimit,
	}
}

func (c Config) limits() micro.Limits {
	return micro.Limits{
		Budget:     c.Budget,
		MaxQueries: c.QueryLimit,
		MaxSteps:   c.StepLimit,
	}
}

// Engine assembles and runs scripts. It holds no per-run state and is safe
// for concurrent use. The zero Config is usable and still bounds every run.
type Engine struct {
	cfg Config
}

// New creates an Engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

var std = New(DefaultConfig())

// Validate assembles source with the default engine.
func Validate(source string) (ok bool, line int) { return std.Validate(source) }

// Run assembles and runs source with the default engine.
func Run(source string, team int, mem *micro.Memory, self micro.Character, score int,
	tiles *micro.Map, chests []micro.Chest, characters []micro.Character) Action {
	return std.Run(source, team, mem, self, score, tiles, chests, characters)
}

// Check assembles source and returns the assembly error, if any. A non-nil
// error is a *micro.AsmError unless assembly panicked.
func (e *Engine) Check(source string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.EngineModule, "assembler panic", "panic", r)
			err = fmt.Errorf("assembler panic: %v", r)
		}
	}()
	_, err = micro.Assemble(source)
	return err
}

// Validate reports whether source assembles, and if not, the 1-based line of
// the first error. Line is 0 when the failure has no line.
func (e *Engine) Validate(source string) (ok bool, line int) {
	err := e.Check(source)
	if err == nil {
		return true, 0
	}
	var asmErr *micro.AsmError
	if errors.As(err, &asmErr) {
		return false, asmErr.Line
	}
	return false, 0
}

// Run assembles source and runs it once against the given world state.
// mem is the caller's scratch buffer and is modified in place; a nil mem runs
// against a zeroed buffer that is discarded. The result is always in
// [-1, 7]: assembly failures yield ActionError.
func (e *Engine) Run(source string, team int, mem *micro.Memory, self micro.Character, score int,
	tiles *micro.Map, chests []micro.Chest, characters []micro.Character) Action {
	return e.Exec(source, mem, &micro.World{
		Self:       self,
		Team:       team,
		Score:      score,
		Map:        tiles,
		Chests:     chests,
		Characters: characters,
	})
}

// Exec is Run with the world already bundled.
func (e *Engine) Exec(source string, mem *micro.Memory, world *micro.World) (action Action) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn(log.EngineModule, "run panic", "panic", r)
			action = ActionError
		}
	}()

	code, err := micro.Assemble(source)
	if err != nil {
		log.Debug(log.EngineModule, "rejecting script", "err", err)
		return ActionError
	}
	return e.execute(code, mem, world)
}

func (e *Engine) execute(code []micro.Instruction, mem *micro.Memory, world *micro.World) Action {
	if mem == nil {
		mem = new(micro.Memory)
	}
	vm := micro.New(code, mem, world, e.cfg.limits())
	if e.cfg.Clock != nil {
		vm.Clock = e.cfg.Clock
	}
	raw, err := vm.Run()
	if err != nil {
		action := faultAction(err)
		log.Debug(log.EngineModule, "run fault", "err", err, "action", action, "steps", vm.Steps)
		return action
	}
	return Clamp(raw)
}

// faultAction maps a run time fault to the action reported to the host.
// Budget and memory faults fail silently; the rest are errors.
func faultAction(err error) Action {
	switch {
	case errors.Is(err, micro.ErrBudgetExceeded), errors.Is(err, micro.ErrOutOfBounds):
		return ActionNone
	default:
		return ActionError
	}
}
