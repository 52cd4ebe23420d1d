package sandbox

import "github.com/psilLang/chestvm/pkg/micro"

// Scratch memory layout of one run.
const (
	SharedCells  = 50 // cells 0-49, shared by a team
	PrivateCells = 8  // cells 50-57, private to a character

	privateBase = SharedCells
	tmpBase     = privateBase + PrivateCells
)

// ForkTeamID is the team id a fork character runs with.
const ForkTeamID = 0

// Member is one character of a team with the memory it keeps between runs.
type Member struct {
	Character micro.Character
	Private   [PrivateCells]uint32
}

// Team is a player: one script, one score, one shared memory region and its
// characters. The first member is the primary character.
type Team struct {
	ID      int
	Script  string
	Score   int
	Shared  [SharedCells]uint32
	Members []*Member
}

// AddFork adds a fork character at (x, y).
func (t *Team) AddFork(x, y int) *Member {
	m := &Member{Character: micro.Character{X: x, Y: y, Fork: true}}
	t.Members = append(t.Members, m)
	return m
}

// RunID is the team id m's script sees through get_id.
func (t *Team) RunID(m *Member) int {
	if m.Character.Fork {
		return ForkTeamID
	}
	return t.ID
}

// load assembles the scratch memory for one run of m.
func (t *Team) load(m *Member, mem *micro.Memory) {
	copy(mem[:privateBase], t.Shared[:])
	copy(mem[privateBase:tmpBase], m.Private[:])
	clear(mem[tmpBase:])
}

// save copies the persistent regions back after a run of m.
func (t *Team) save(m *Member, mem *micro.Memory) {
	copy(t.Shared[:], mem[:privateBase])
	copy(m.Private[:], mem[privateBase:tmpBase])
}
