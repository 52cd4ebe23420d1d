package micro

import (
	"errors"
	"fmt"
	"time"

	"github.com/psilLang/chestvm/pkg/log"
)

// Execution limits of one run.
const (
	DefaultBudget     = 250 * time.Millisecond
	DefaultQueryLimit = 5
)

// sentinel is written to destination cells when a query is refused.
const sentinel = ^uint32(0)

var (
	ErrOutOfBounds    = errors.New("memory access out of bounds")
	ErrDivideByZero   = errors.New("division by zero")
	ErrBudgetExceeded = errors.New("execution budget exceeded")
	ErrInvalidOpcode  = errors.New("invalid opcode")
)

// MemoryFault is returned for an access outside scratch memory. It matches
// ErrOutOfBounds with errors.Is.
type MemoryFault struct {
	Addr  int
	Write bool
}

func (f *MemoryFault) Error() string {
	kind := "read"
	if f.Write {
		kind = "write"
	}
	return fmt.Sprintf("memory %s at %d out of bounds", kind, f.Addr)
}

func (f *MemoryFault) Is(target error) bool { return target == ErrOutOfBounds }

// Clock is the time source used for the wall clock budget.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the real time.
var SystemClock Clock = systemClock{}

// Limits bounds one run. A run always has a wall clock budget and a query
// limit: zero or negative values fall back to the defaults.
type Limits struct {
	Budget     time.Duration // wall clock budget, <= 0 = DefaultBudget
	MaxQueries int           // nearest chest and character queries combined, <= 0 = DefaultQueryLimit
	MaxSteps   int           // executed instructions, 0 = none
}

func (l Limits) withDefaults() Limits {
	if l.Budget <= 0 {
		l.Budget = DefaultBudget
	}
	if l.MaxQueries <= 0 {
		l.MaxQueries = DefaultQueryLimit
	}
	return l
}

// DefaultLimits returns the 250ms budget and 5 query limit.
func DefaultLimits() Limits {
	return Limits{Budget: DefaultBudget, MaxQueries: DefaultQueryLimit}
}

// VM runs one program against one memory buffer and one world snapshot.
// A VM is used for a single run; it is not safe for concurrent use, but
// separate VMs may share a World.
type VM struct {
	Code   []Instruction
	Mem    *Memory
	World  *World
	Limits Limits
	Clock  Clock

	PC     int
	Steps  int
	Halted bool   // set by ret
	Result uint32 // operand of ret

	chestQueries     int
	characterQueries int
	start            time.Time
	trace            bool
}

// New creates a VM. A nil world is treated as an empty one; unset limits
// take their defaults.
func New(code []Instruction, mem *Memory, world *World, limits Limits) *VM {
	if world == nil {
		world = &World{}
	}
	return &VM{
		Code:   code,
		Mem:    mem,
		World:  world,
		Limits: limits.withDefaults(),
		Clock:  SystemClock,
		trace:  log.ModuleEnabled(log.VMModule),
	}
}

// Queries returns the number of successful nearest chest and character
// queries so far.
func (vm *VM) Queries() (chest, character int) {
	return vm.chestQueries, vm.characterQueries
}

// Run executes until ret, the end of the program, or a fault. It returns the
// ret operand as a signed action, or 0 when execution falls off the end.
// Faults are returned as errors; the caller decides what they mean.
func (vm *VM) Run() (int32, error) {
	vm.start = vm.Clock.Now()
	for !vm.Halted && vm.PC >= 0 && vm.PC < len(vm.Code) {
		if err := vm.checkBudget(); err != nil {
			log.Debug(log.VMModule, "budget exceeded", "pc", vm.PC, "steps", vm.Steps)
			return 0, err
		}
		if err := vm.Step(); err != nil {
			log.Debug(log.VMModule, "fault", "pc", vm.PC-1, "err", err)
			return 0, err
		}
	}
	if vm.Halted {
		return int32(vm.Result), nil
	}
	return 0, nil
}

func (vm *VM) checkBudget() error {
	if vm.Limits.MaxSteps > 0 && vm.Steps >= vm.Limits.MaxSteps {
		return ErrBudgetExceeded
	}
	if vm.Clock.Now().Sub(vm.start) >= vm.Limits.Budget {
		return ErrBudgetExceeded
	}
	return nil
}

// Step fetches, advances the program counter, and executes one instruction.
func (vm *VM) Step() error {
	if vm.PC < 0 || vm.PC >= len(vm.Code) {
		return fmt.Errorf("%w: pc %d outside program", ErrInvalidOpcode, vm.PC)
	}
	in := vm.Code[vm.PC]
	vm.PC++
	vm.Steps++

	if vm.trace {
		log.Trace(log.VMModule, "exec", "pc", vm.PC-1, "ins", in.String())
	}
	return vm.exec(in)
}

func (vm *VM) exec(in Instruction) error {
	switch in.Op {
	case OpMov:
		v, err := vm.operand(in.Arg2)
		if err != nil {
			return err
		}
		return vm.store(in.Arg1, v)

	case OpMovi:
		src, ok := in.Arg2.(Addr)
		if !ok {
			return fmt.Errorf("%w: movi with %T operand", ErrInvalidOpcode, in.Arg2)
		}
		dstAddr, err := vm.load(in.Arg1)
		if err != nil {
			return err
		}
		srcAddr, err := vm.load(src)
		if err != nil {
			return err
		}
		v, err := vm.read(int64(srcAddr))
		if err != nil {
			return err
		}
		return vm.write(int64(dstAddr), v)

	case OpAdd, OpShr, OpShl, OpMul, OpDiv, OpAnd, OpOr:
		return vm.arith(in)

	case OpJe, OpJg:
		a, err := vm.load(in.Arg1)
		if err != nil {
			return err
		}
		b, err := vm.operand(in.Arg2)
		if err != nil {
			return err
		}
		if (in.Op == OpJe && a == b) || (in.Op == OpJg && a > b) {
			vm.PC = in.Arg3
		}
		return nil

	case OpInc, OpDec, OpNg:
		v, err := vm.load(in.Arg1)
		if err != nil {
			return err
		}
		switch in.Op {
		case OpInc:
			v++
		case OpDec:
			v--
		default:
			v = ^v
		}
		return vm.store(in.Arg1, v)

	case OpRet:
		v, err := vm.operand(in.Arg2)
		if err != nil {
			return err
		}
		vm.Result = v
		vm.Halted = true
		return nil

	case OpLoadScore:
		return vm.store(in.Arg1, uint32(vm.World.Score))

	case OpLoadLoc:
		if err := vm.store(in.Arg1, uint32(vm.World.Self.X)); err != nil {
			return err
		}
		return vm.store(in.Arg1+1, uint32(vm.World.Self.Y))

	case OpLoadMap:
		xAddr, ok := in.Arg2.(Addr)
		if !ok {
			return fmt.Errorf("%w: load_map with %T operand", ErrInvalidOpcode, in.Arg2)
		}
		x, err := vm.load(xAddr)
		if err != nil {
			return err
		}
		y, err := vm.load(Addr(in.Arg3))
		if err != nil {
			return err
		}
		tile := uint32(TileWall)
		if x < MapSize && y < MapSize {
			tile = uint32(vm.World.Map.At(int(x), int(y)))
		}
		return vm.store(in.Arg1, tile)

	case OpGetID:
		return vm.store(in.Arg1, uint32(vm.World.Team))

	case OpLocateChest:
		k, err := vm.operand(in.Arg2)
		if err != nil {
			return err
		}
		return vm.locateChest(in.Arg1, k)

	case OpLocateCharacter:
		k, err := vm.operand(in.Arg2)
		if err != nil {
			return err
		}
		return vm.locateCharacter(in.Arg1, k)
	}
	return fmt.Errorf("%w: %v", ErrInvalidOpcode, in.Op)
}

func (vm *VM) arith(in Instruction) error {
	a, err := vm.load(in.Arg1)
	if err != nil {
		return err
	}
	b, err := vm.operand(in.Arg2)
	if err != nil {
		return err
	}
	switch in.Op {
	case OpAdd:
		a += b
	case OpShr:
		a >>= b
	case OpShl:
		a <<= b
	case OpMul:
		a *= b
	case OpDiv:
		if b == 0 {
			return ErrDivideByZero
		}
		a /= b
	case OpAnd:
		a &= b
	case OpOr:
		a |= b
	}
	return vm.store(in.Arg1, a)
}

// operand decodes the second operand: an immediate as is, an address through
// memory.
func (vm *VM) operand(o Operand) (uint32, error) {
	switch o := o.(type) {
	case Imm:
		return uint32(o), nil
	case Addr:
		return vm.load(o)
	}
	return 0, fmt.Errorf("%w: missing operand", ErrInvalidOpcode)
}

func (vm *VM) load(a Addr) (uint32, error) { return vm.read(int64(a)) }

func (vm *VM) store(a Addr, v uint32) error { return vm.write(int64(a), v) }

func (vm *VM) read(addr int64) (uint32, error) {
	if vm.Mem == nil || addr < 0 || addr >= MemSize {
		return 0, &MemoryFault{Addr: int(addr)}
	}
	return vm.Mem[addr], nil
}

func (vm *VM) write(addr int64, v uint32) error {
	if vm.Mem == nil || addr < 0 || addr >= MemSize {
		return &MemoryFault{Addr: int(addr), Write: true}
	}
	vm.Mem[addr] = v
	return nil
}
