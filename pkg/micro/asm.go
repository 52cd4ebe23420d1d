package micro

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/psilLang/chestvm/pkg/log"
)

// ImmediateMarker prefixes a literal operand.
const ImmediateMarker = '#'

// MaxInstructions bounds program length so every program counter, including
// one past the end, fits in 16 bits.
const MaxInstructions = math.MaxUint16

var (
	ErrUnknownMnemonic     = errors.New("unknown mnemonic")
	ErrMissingOperand      = errors.New("missing operand")
	ErrBadNumber           = errors.New("malformed number")
	ErrUndefinedLabel      = errors.New("undefined label")
	ErrTooManyInstructions = errors.New("too many instructions")
)

// AsmError reports the first line that failed to assemble. Line is 1-based.
type AsmError struct {
	Line int
	Err  error
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *AsmError) Unwrap() error { return e.Err }

// Assembler converts script text to instructions. The symbol table only
// lives for the duration of one Assemble call.
type Assembler struct {
	code   []Instruction
	labels map[string]int
}

// NewAssembler creates a new assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble is a shorthand for NewAssembler().Assemble(source).
func Assemble(source string) ([]Instruction, error) {
	return NewAssembler().Assemble(source)
}

// Assemble converts script text to instructions. Assembly is all or
// nothing: on error no instructions are returned and the error is an
// *AsmError naming the first offending line.
func (a *Assembler) Assemble(source string) ([]Instruction, error) {
	lines := strings.Split(source, "\n")
	a.labels = resolveLabels(lines)
	a.code = make([]Instruction, 0, len(lines))
	defer func() { a.labels = nil }()

	for i, raw := range lines {
		kind, text := classifyLine(raw)
		if kind != lineInstruction {
			continue
		}
		if err := a.assembleLine(text); err != nil {
			log.Debug(log.AsmModule, "assembly failed", "line", i+1, "err", err)
			a.code = nil
			return nil, &AsmError{Line: i + 1, Err: err}
		}
	}
	log.Debug(log.AsmModule, "assembled", "instructions", len(a.code), "labels", len(a.labels))
	return a.code, nil
}

// resolveLabels maps each label to the index of the next real instruction.
// A label with nothing after it maps to the instruction count.
func resolveLabels(lines []string) map[string]int {
	labels := make(map[string]int)
	pc := 0
	for _, raw := range lines {
		switch kind, text := classifyLine(raw); kind {
		case lineLabel:
			if text != "" {
				labels[text] = pc
			}
		case lineInstruction:
			pc++
		}
	}
	return labels
}

func (a *Assembler) assembleLine(line string) error {
	tokens, err := Tokenize(line)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return ErrMissingOperand
	}
	op, ok := LookupMnemonic(tokens[0])
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMnemonic, tokens[0])
	}
	info := opTable[op]
	args := tokens[1:]
	if len(args) < info.shape.arity() {
		return fmt.Errorf("%w: %s takes %d operands, got %d", ErrMissingOperand, op, info.shape.arity(), len(args))
	}
	if len(a.code) >= MaxInstructions {
		return ErrTooManyInstructions
	}

	in := Instruction{Op: op}
	switch info.shape {
	case shapeReg:
		if in.Arg1, err = parseAddr(args[0]); err != nil {
			return err
		}
	case shapeValue:
		if in.Arg2, err = parseValue(args[0]); err != nil {
			return err
		}
	case shapeRegValue:
		if in.Arg1, err = parseAddr(args[0]); err != nil {
			return err
		}
		if in.Arg2, err = parseValue(args[1]); err != nil {
			return err
		}
	case shapeRegReg:
		if in.Arg1, err = parseAddr(args[0]); err != nil {
			return err
		}
		if in.Arg2, err = parseAddr(args[1]); err != nil {
			return err
		}
	case shapeRegRegReg:
		if in.Arg1, err = parseAddr(args[0]); err != nil {
			return err
		}
		if in.Arg2, err = parseAddr(args[1]); err != nil {
			return err
		}
		y, err := parseAddr(args[2])
		if err != nil {
			return err
		}
		in.Arg3 = int(y)
	case shapeBranch:
		if in.Arg1, err = parseAddr(args[0]); err != nil {
			return err
		}
		if in.Arg2, err = parseValue(args[1]); err != nil {
			return err
		}
		target, ok := a.labels[args[2]]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUndefinedLabel, args[2])
		}
		in.Arg3 = target
	}
	a.code = append(a.code, in)
	return nil
}

// parseValue parses a token that may be an immediate or an address.
func parseValue(tok string) (Operand, error) {
	if len(tok) > 0 && tok[0] == ImmediateMarker {
		return parseImm(tok)
	}
	return parseAddr(tok)
}

func parseAddr(tok string) (Addr, error) {
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, tok)
	}
	return Addr(n), nil
}

// parseImm accepts #n for n in [-2^31, 2^32-1]; the value wraps to 32 bits.
func parseImm(tok string) (Imm, error) {
	n, err := strconv.ParseInt(tok[1:], 10, 64)
	if err != nil || n < math.MinInt32 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, tok)
	}
	return Imm(uint32(n)), nil
}
