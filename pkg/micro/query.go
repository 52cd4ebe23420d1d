package micro

import (
	"cmp"
	"slices"
)

// RankByDistance returns the indexes 0..n-1 ordered by squared euclidean
// distance from (x, y). Equidistant entries keep ascending index order.
func RankByDistance(x, y, n int, pos func(i int) (int, int)) []int {
	dist := make([]int64, n)
	order := make([]int, n)
	for i := range order {
		px, py := pos(i)
		dx, dy := int64(px-x), int64(py-y)
		dist[i] = dx*dx + dy*dy
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(dist[a], dist[b])
	})
	return order
}

func (vm *VM) queryAllowed(k uint32, n int) bool {
	return vm.chestQueries+vm.characterQueries < vm.Limits.MaxQueries && uint64(k) < uint64(n)
}

// locateChest writes the k-th nearest chest as (x, y) at dst, or two
// sentinels when refused.
func (vm *VM) locateChest(dst Addr, k uint32) error {
	w := vm.World
	if !vm.queryAllowed(k, len(w.Chests)) {
		return vm.fill(dst, 2, sentinel)
	}
	vm.chestQueries++
	order := RankByDistance(w.Self.X, w.Self.Y, len(w.Chests), func(i int) (int, int) {
		return w.Chests[i].X, w.Chests[i].Y
	})
	c := w.Chests[order[k]]
	return vm.fillWith(dst, uint32(c.X), uint32(c.Y))
}

// locateCharacter writes the k-th nearest character as (fork, x, y) at dst,
// or three sentinels when refused.
func (vm *VM) locateCharacter(dst Addr, k uint32) error {
	w := vm.World
	if !vm.queryAllowed(k, len(w.Characters)) {
		return vm.fill(dst, 3, sentinel)
	}
	vm.characterQueries++
	order := RankByDistance(w.Self.X, w.Self.Y, len(w.Characters), func(i int) (int, int) {
		return w.Characters[i].X, w.Characters[i].Y
	})
	c := w.Characters[order[k]]
	var fork uint32
	if c.Fork {
		fork = 1
	}
	return vm.fillWith(dst, fork, uint32(c.X), uint32(c.Y))
}

func (vm *VM) fill(dst Addr, n int, v uint32) error {
	for i := 0; i < n; i++ {
		if err := vm.store(dst+Addr(i), v); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) fillWith(dst Addr, vs ...uint32) error {
	for i, v := range vs {
		if err := vm.store(dst+Addr(i), v); err != nil {
			return err
		}
	}
	return nil
}
