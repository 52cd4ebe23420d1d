package sandbox

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/psilLang/chestvm/pkg/engine"
	"github.com/psilLang/chestvm/pkg/log"
	"github.com/psilLang/chestvm/pkg/micro"
)

// Decision is the action one character chose in a tick.
type Decision struct {
	Team      int
	Member    int
	Character micro.Character
	Action    engine.Action
}

func (d Decision) String() string {
	kind := "primary"
	if d.Character.Fork {
		kind = "fork"
	}
	return fmt.Sprintf("team %d %s %d at (%d, %d): %v", d.Team, kind, d.Member, d.Character.X, d.Character.Y, d.Action)
}

// Scheduler runs the think phase of the tick loop. Applying decisions to the
// arena is left to the caller.
type Scheduler struct {
	Arena   *Arena
	Engine  *engine.Engine
	Workers int // teams thinking at once, <= 0 = one per team
	Tick    int
}

// NewScheduler creates a scheduler for the given arena.
func NewScheduler(a *Arena, e *engine.Engine) *Scheduler {
	return &Scheduler{Arena: a, Engine: e}
}

// SetScript installs script for a team if it assembles.
func (s *Scheduler) SetScript(team int, script string) error {
	t := s.Arena.Team(team)
	if t == nil {
		return fmt.Errorf("unknown team %d", team)
	}
	if err := s.Engine.Check(script); err != nil {
		return fmt.Errorf("team %d: %w", team, err)
	}
	t.Script = script
	return nil
}

// Think runs every character once against a snapshot of the arena. Teams run
// concurrently; the characters of a team run in member order since they
// share memory. Decisions come back in team then member order.
//
// ctx is checked before each run, not inside one: a run in progress always
// finishes within its engine budget, then the tick stops with ctx.Err() and
// no decisions.
func (s *Scheduler) Think(ctx context.Context) ([]Decision, error) {
	a := s.Arena
	tiles := a.TurnMap()
	chests := append([]micro.Chest(nil), a.Chests...)
	characters := a.Characters()

	results := make([][]Decision, len(a.Teams))
	g, ctx := errgroup.WithContext(ctx)
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}
	for i, t := range a.Teams {
		i, t := i, t
		g.Go(func() error {
			out := make([]Decision, 0, len(t.Members))
			for j, m := range t.Members {
				if err := ctx.Err(); err != nil {
					return err
				}
				var mem micro.Memory
				t.load(m, &mem)
				action := s.Engine.Exec(t.Script, &mem, &micro.World{
					Self:       m.Character,
					Team:       t.RunID(m),
					Score:      t.Score,
					Map:        tiles,
					Chests:     chests,
					Characters: characters,
				})
				t.save(m, &mem)
				log.Debug(log.SchedModule, "think", "tick", s.Tick, "team", t.ID, "member", j, "action", action)
				out = append(out, Decision{Team: t.ID, Member: j, Character: m.Character, Action: action})
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var decisions []Decision
	for _, r := range results {
		decisions = append(decisions, r...)
	}
	log.Info(log.SchedModule, "tick done", "tick", s.Tick, "teams", len(a.Teams), "decisions", len(decisions))
	s.Tick++
	return decisions, nil
}
