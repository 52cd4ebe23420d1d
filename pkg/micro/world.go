package micro

// MapSize is the width and height of the tile grid.
const MapSize = 50

// MemSize is the number of scratch memory cells.
const MemSize = 100

// Tile values. A tile may carry several bits at once.
const (
	TilePath      = 0
	TileWall      = 1
	TileChest     = 2
	TileCharacter = 4
)

// Memory is the scratch address space of one run.
type Memory [MemSize]uint32

// Map is the tile grid, indexed [y][x].
type Map [MapSize][MapSize]byte

// At returns the tile at (x, y), or TileWall outside the grid.
func (m *Map) At(x, y int) byte {
	if m == nil || x < 0 || x >= MapSize || y < 0 || y >= MapSize {
		return TileWall
	}
	return m[y][x]
}

// Character is a character position as seen by a script.
type Character struct {
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Fork bool `json:"fork"`
}

// Chest is a chest position.
type Chest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// World is the read-only snapshot a script runs against. The VM never
// writes to it and never keeps it past one run.
type World struct {
	Self       Character
	Team       int
	Score      int
	Map        *Map
	Chests     []Chest
	Characters []Character
}
