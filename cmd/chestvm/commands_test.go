package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psilLang/chestvm/pkg/engine"
	"github.com/psilLang/chestvm/pkg/micro"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(checkCmd(), writeFile(t, "ok.asm", "start:\nje 0 #0 start"))
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = execute(checkCmd(), writeFile(t, "bad.asm", "ret #1\nfly 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = execute(checkCmd(), filepath.Join(t.TempDir(), "missing.asm"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDisasmCommand(t *testing.T) {
	out, err := execute(disasmCmd(), writeFile(t, "p.asm", "top:\nmov 1 #2\nje 1 #2 top"))
	require.NoError(t, err)
	assert.Equal(t, "   0  mov 1 #2\n   1  je 1 #2 @0\n", out)
}

func TestRunCommand(t *testing.T) {
	script := writeFile(t, "p.asm", `
get_id 0
load_score 1
locate_nearest_k_chest 2 #0
ret #6
`)
	world := writeFile(t, "world.json", `{
  "self": {"x": 1, "y": 1},
  "team": 3,
  "score": 40,
  "chests": [{"x": 9, "y": 9}, {"x": 2, "y": 2}]
}`)

	out, err := execute(runCmd(), script, "--world", world, "--mem")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "6 attack", lines[0])
	assert.Equal(t, "  [ 0] = 3 (0x3)", lines[1])
	assert.Equal(t, "  [ 1] = 40 (0x28)", lines[2])
	assert.Equal(t, "  [ 2] = 2 (0x2)", lines[3])

	out, err = execute(runCmd(), script, "--world", world, "--team", "5")
	require.NoError(t, err)
	assert.Equal(t, "6 attack\n", out)
}

func TestRunCommandMap(t *testing.T) {
	script := writeFile(t, "p.asm", "mov 0 #2\nmov 1 #0\nload_map 2 0 1\nret 2")
	m := writeFile(t, "map.txt", "..#\n")
	out, err := execute(runCmd(), script, "--map", m)
	require.NoError(t, err)
	assert.Equal(t, "1 up\n", out)
}

func TestDecodeWorldRejectsUnknownFields(t *testing.T) {
	_, err := decodeWorld(strings.NewReader(`{"self": {"x": 1}, "teams": 2}`))
	assert.Error(t, err)

	wf, err := decodeWorld(strings.NewReader(`{"characters": [{"x": 4, "y": 5, "fork": true}]}`))
	require.NoError(t, err)
	assert.Equal(t, []micro.Character{{X: 4, Y: 5, Fork: true}}, wf.Characters)
}

func TestThinkCommand(t *testing.T) {
	a := writeFile(t, "a.asm", "inc 0\nret 0")
	b := writeFile(t, "b.asm", "ret #5")
	out, err := execute(thinkCmd(), a, b, "--ticks", "2", "--chests", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "tick 0", lines[0])
	assert.Contains(t, lines[1], "team 1 primary 0")
	assert.True(t, strings.HasSuffix(lines[1], ": up"))
	assert.True(t, strings.HasSuffix(lines[2], ": interact"))
	assert.Equal(t, "tick 1", lines[3])
	assert.True(t, strings.HasSuffix(lines[4], ": down"))
}

func TestThinkCommandRejectsBadScript(t *testing.T) {
	bad := writeFile(t, "bad.asm", "ret #1\nret #1\nwat")
	_, err := execute(thinkCmd(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestSession(t *testing.T) {
	s := newSession(engine.New(engine.DefaultConfig()))
	var out bytes.Buffer
	feed := func(line string) string {
		out.Reset()
		assert.False(t, s.handle(&out, line))
		return out.String()
	}

	feed("inc 0")
	feed("ret 0")
	assert.Equal(t, "1 up\n", feed(".run"))
	assert.Equal(t, "2 down\n", feed(".run"))
	assert.Equal(t, "  [ 0] = 2 (0x2)\n", feed(".mem"))
	assert.Equal(t, "  1  inc 0\n  2  ret 0\n", feed(".list"))
	assert.Equal(t, "ok\n", feed(".check"))

	feed("bogus 1")
	assert.Contains(t, feed(".check"), "line 3")
	assert.Equal(t, "-1 error\n", feed(".run"))

	assert.Contains(t, feed(".nope"), "unknown command")
	feed(".reset")
	assert.Empty(t, feed(".mem"))
	assert.Equal(t, "0 none\n", feed(".run"))

	assert.True(t, s.handle(&out, ".quit"))
}

func TestExampleScripts(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join("..", "..", "testdata", "scripts", "*.asm"))
	require.NoError(t, err)
	require.NotEmpty(t, scripts)
	for _, path := range scripts {
		out, err := execute(checkCmd(), path)
		require.NoError(t, err, path)
		assert.Equal(t, "ok\n", out)
	}

	args := append(scripts, "--map", filepath.Join("..", "..", "testdata", "maps", "arena.txt"), "--ticks", "3")
	out, err := execute(thinkCmd(), args...)
	require.NoError(t, err)
	assert.Equal(t, 3*(len(scripts)+1), strings.Count(out, "\n"))
	assert.NotContains(t, out, ": error")
}

func TestSeekerHeadsForChest(t *testing.T) {
	src, err := readScript(filepath.Join("..", "..", "testdata", "scripts", "seeker.asm"))
	require.NoError(t, err)
	e := engine.New(engine.DefaultConfig())

	tests := []struct {
		self  micro.Character
		chest micro.Chest
		want  engine.Action
	}{
		{micro.Character{X: 1, Y: 1}, micro.Chest{X: 8, Y: 1}, engine.ActionRight},
		{micro.Character{X: 9, Y: 1}, micro.Chest{X: 2, Y: 3}, engine.ActionLeft},
		{micro.Character{X: 4, Y: 1}, micro.Chest{X: 4, Y: 7}, engine.ActionDown},
		{micro.Character{X: 4, Y: 9}, micro.Chest{X: 5, Y: 2}, engine.ActionUp},
		{micro.Character{X: 4, Y: 4}, micro.Chest{X: 5, Y: 5}, engine.ActionInteract},
	}
	for _, tt := range tests {
		got := e.Exec(src, nil, &micro.World{Self: tt.self, Chests: []micro.Chest{tt.chest}})
		assert.Equal(t, tt.want, got, "%+v -> %+v", tt.self, tt.chest)
	}
	assert.Equal(t, engine.ActionNone, e.Exec(src, nil, &micro.World{}))
}
