package micro

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"mov 1 #2", []string{"mov", "1", "#2"}},
		{"  je\t0  #5\vloop \r", []string{"je", "0", "#5", "loop"}},
		{"", nil},
		{" \t ", nil},
		{"ret", []string{"ret"}},
	}
	for _, tt := range tests {
		got, err := Tokenize(tt.line)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", tt.line, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		kind lineKind
		text string
	}{
		{"   ", lineBlank, ""},
		{"// mov 1 2: not a label", lineComment, ""},
		{"  loop:  ", lineLabel, "loop"},
		{" spaced name :", lineLabel, "spaced name"},
		{":", lineLabel, ""},
		{"\tmov 1 2 ", lineInstruction, "mov 1 2"},
		{"\v\fret #1\r", lineInstruction, "ret #1"},
		{"\u00a0mov 1 2", lineInstruction, "\u00a0mov 1 2"},
		{"\u00a0", lineInstruction, "\u00a0"},
	}
	for _, tt := range tests {
		kind, text := classifyLine(tt.line)
		if kind != tt.kind || text != tt.text {
			t.Errorf("classifyLine(%q) = (%d, %q), want (%d, %q)", tt.line, kind, text, tt.kind, tt.text)
		}
	}
}

func TestAssembleEveryOpcode(t *testing.T) {
	valid := []string{
		"mov 1 2", "mov 1 #-7",
		"movi 3 4",
		"add 0 1", "add 0 #1",
		"mul 0 #3", "div 0 #5", "shr 0 #1", "shl 0 2", "and 0 #255", "or 0 1",
		"inc 9", "dec 9", "ng 9",
		"je 0 1 end", "je 0 #1 end", "jg 0 #1 end",
		"ret 5", "ret #7",
		"load_score 10", "load_loc 11", "load_map 12 13 14", "get_id 15",
		"locate_nearest_k_chest 20 #0", "locate_nearest_k_chest 20 21",
		"locate_nearest_k_character 30 #1", "locate_nearest_k_character 30 31",
	}
	for _, line := range valid {
		t.Run(line, func(t *testing.T) {
			code, err := Assemble(line + "\nend:")
			if err != nil {
				t.Fatalf("Assemble(%q): %v", line, err)
			}
			if len(code) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(code))
			}
			op, _ := LookupMnemonic(strings.Fields(line)[0])
			if code[0].Op != op {
				t.Errorf("op = %v, want %v", code[0].Op, op)
			}
		})
	}
}

func TestAssembleOperands(t *testing.T) {
	code, err := Assemble("mov 5 #42\nmov 6 5\nload_map 1 2 3\nret #-1")
	if err != nil {
		t.Fatal(err)
	}
	want := []Instruction{
		{Op: OpMov, Arg1: 5, Arg2: Imm(42)},
		{Op: OpMov, Arg1: 6, Arg2: Addr(5)},
		{Op: OpLoadMap, Arg1: 1, Arg2: Addr(2), Arg3: 3},
		{Op: OpRet, Arg2: Imm(0xFFFFFFFF)},
	}
	if !reflect.DeepEqual(code, want) {
		t.Errorf("got %v\nwant %v", code, want)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		err  error
	}{
		{"bad mnemonic", "mov 1 2\njump 1", 2, ErrUnknownMnemonic},
		{"upper case mnemonic", "MOV 1 2", 1, ErrUnknownMnemonic},
		{"missing operand", "// c\n\nadd 1", 3, ErrMissingOperand},
		{"bare ret", "ret", 1, ErrMissingOperand},
		{"bad immediate", "mov 1 #x", 1, ErrBadNumber},
		{"empty immediate", "ret #", 1, ErrBadNumber},
		{"immediate too large", "ret #4294967296", 1, ErrBadNumber},
		{"immediate destination", "inc #1", 1, ErrBadNumber},
		{"non numeric address", "mov a 1", 1, ErrBadNumber},
		{"undefined label", "start:\n je 0 #0 nowhere", 2, ErrUndefinedLabel},
		{"label case", "Loop:\nje 0 #0 loop", 2, ErrUndefinedLabel},
		{"branch missing label", "je 0 #0", 1, ErrMissingOperand},
		{"first error wins", "mov 1\nbogus", 1, ErrMissingOperand},
		{"non ascii space", "ret #1\n\u00a0mov 1 #2", 2, ErrUnknownMnemonic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Assemble(tt.src)
			if err == nil {
				t.Fatalf("expected error, got %v", code)
			}
			if code != nil {
				t.Errorf("expected no instructions on failure, got %d", len(code))
			}
			var asmErr *AsmError
			if !errors.As(err, &asmErr) {
				t.Fatalf("expected *AsmError, got %T", err)
			}
			if asmErr.Line != tt.line {
				t.Errorf("line = %d, want %d", asmErr.Line, tt.line)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error %v does not wrap %v", err, tt.err)
			}
		})
	}
}

func TestLabelResolution(t *testing.T) {
	src := strings.Join([]string{
		"// scan the map",
		"   je 0 #1 done", // forward reference
		"top:",
		"",
		"inc 0",
		"// comment between",
		"jg 0 #0 top",
		"done:",
		"ret #3",
		"tail:",
	}, "\n")

	labels := resolveLabels(strings.Split(src, "\n"))
	want := map[string]int{"top": 1, "done": 3, "tail": 4}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}

	code, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(code))
	}
	if code[0].Arg3 != 3 {
		t.Errorf("forward branch target = %d, want 3", code[0].Arg3)
	}
	if code[2].Arg3 != 1 {
		t.Errorf("backward branch target = %d, want 1", code[2].Arg3)
	}
}

func TestTrailingTokensIgnored(t *testing.T) {
	code, err := Assemble("mov 1 #2 // set counter")
	if err != nil {
		t.Fatal(err)
	}
	if code[0].Arg2 != Imm(2) {
		t.Errorf("arg2 = %v, want #2", code[0].Arg2)
	}
}

func TestOutOfRangeAddressesAssemble(t *testing.T) {
	// Addresses are checked when the instruction runs, not here.
	if _, err := Assemble("mov 100 #1\nmov -1 #1\nmov 0 250"); err != nil {
		t.Fatal(err)
	}
}

func TestInstructionString(t *testing.T) {
	code, err := Assemble("x:\nje 4 #-1 x\nload_map 1 2 3\nng 7")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"je 4 #-1 @0", "load_map 1 2 3", "ng 7"}
	for i, in := range code {
		if in.String() != want[i] {
			t.Errorf("String() = %q, want %q", in.String(), want[i])
		}
	}
}
