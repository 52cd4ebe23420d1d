// Package sandbox hosts character scripts on a shared arena: it owns the wall
// map, the chests, the teams and their memory, and asks the engine for one
// action per character each tick.
package sandbox

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/psilLang/chestvm/pkg/micro"
)

// WallRune marks a wall in map text.
const WallRune = '#'

var ErrArenaFull = errors.New("no free cell left")

// ParseMap reads map text: one row per line, '#' is a wall and anything else
// a path. Rows and columns past MapSize are ignored; missing cells are paths.
func ParseMap(r io.Reader) (*micro.Map, error) {
	var m micro.Map
	sc := bufio.NewScanner(r)
	for y := 0; y < micro.MapSize && sc.Scan(); y++ {
		for x, c := range []byte(sc.Text()) {
			if x >= micro.MapSize {
				break
			}
			if c == WallRune {
				m[y][x] = micro.TileWall
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	return &m, nil
}

// LoadMap parses the map file at path.
func LoadMap(path string) (*micro.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMap(f)
}

// Arena is the shared state of a round.
type Arena struct {
	Walls  micro.Map
	Chests []micro.Chest
	Teams  []*Team
	Rng    *rand.Rand
}

// NewArena creates an arena over walls. A nil walls is an open map.
func NewArena(walls *micro.Map, rng *rand.Rand) *Arena {
	a := &Arena{Rng: rng}
	if walls != nil {
		a.Walls = *walls
	}
	return a
}

func (a *Arena) InBounds(x, y int) bool {
	return x >= 0 && x < micro.MapSize && y >= 0 && y < micro.MapSize
}

// Open reports whether (x, y) is inside the arena and not a wall.
func (a *Arena) Open(x, y int) bool {
	return a.InBounds(x, y) && a.Walls[y][x] != micro.TileWall
}

// randomOpen picks a random open cell, giving up after a bounded number of
// tries so a walled-in map cannot spin forever.
func (a *Arena) randomOpen() (int, int, error) {
	for tries := 0; tries < 4*micro.MapSize*micro.MapSize; tries++ {
		x := a.Rng.Intn(micro.MapSize)
		y := a.Rng.Intn(micro.MapSize)
		if a.Open(x, y) {
			return x, y, nil
		}
	}
	for y := 0; y < micro.MapSize; y++ {
		for x := 0; x < micro.MapSize; x++ {
			if a.Open(x, y) {
				return x, y, nil
			}
		}
	}
	return 0, 0, ErrArenaFull
}

// PlaceChest adds a chest at (x, y).
func (a *Arena) PlaceChest(x, y int) error {
	if !a.Open(x, y) {
		return fmt.Errorf("chest at (%d, %d): cell is not open", x, y)
	}
	a.Chests = append(a.Chests, micro.Chest{X: x, Y: y})
	return nil
}

// SpawnChests drops n chests on random open cells.
func (a *Arena) SpawnChests(n int) error {
	for i := 0; i < n; i++ {
		x, y, err := a.randomOpen()
		if err != nil {
			return err
		}
		a.Chests = append(a.Chests, micro.Chest{X: x, Y: y})
	}
	return nil
}

// AddTeam registers a team running script, with its primary character on a
// random open cell. Team ids start at 1; 0 is reserved for forks.
func (a *Arena) AddTeam(script string) (*Team, error) {
	x, y, err := a.randomOpen()
	if err != nil {
		return nil, err
	}
	t := &Team{
		ID:      len(a.Teams) + 1,
		Script:  script,
		Members: []*Member{{Character: micro.Character{X: x, Y: y}}},
	}
	a.Teams = append(a.Teams, t)
	return t, nil
}

// Team returns the team with the given id, or nil.
func (a *Arena) Team(id int) *Team {
	if id < 1 || id > len(a.Teams) {
		return nil
	}
	return a.Teams[id-1]
}

// Characters lists every character of every team, in team then member order.
func (a *Arena) Characters() []micro.Character {
	var out []micro.Character
	for _, t := range a.Teams {
		for _, m := range t.Members {
			out = append(out, m.Character)
		}
	}
	return out
}

// TurnMap returns the grid scripts see this tick: walls, with the chest and
// character bits OR'ed in.
func (a *Arena) TurnMap() *micro.Map {
	m := a.Walls
	for _, c := range a.Chests {
		if a.InBounds(c.X, c.Y) {
			m[c.Y][c.X] |= micro.TileChest
		}
	}
	for _, c := range a.Characters() {
		if a.InBounds(c.X, c.Y) {
			m[c.Y][c.X] |= micro.TileCharacter
		}
	}
	return &m
}
