package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/psilLang/chestvm/pkg/engine"
	"github.com/psilLang/chestvm/pkg/micro"
	"github.com/psilLang/chestvm/pkg/sandbox"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readScript(args[0])
			if err != nil {
				return err
			}
			if err := newEngine().Check(src); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func disasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm FILE",
		Short: "Print the assembled instructions of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readScript(args[0])
			if err != nil {
				return err
			}
			code, err := micro.Assemble(src)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			for pc, in := range code {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %v\n", pc, in)
			}
			return nil
		},
	}
}

// worldFile is the JSON form of a run snapshot.
type worldFile struct {
	Self       micro.Character   `json:"self"`
	Team       int               `json:"team"`
	Score      int               `json:"score"`
	Chests     []micro.Chest     `json:"chests"`
	Characters []micro.Character `json:"characters"`
}

func decodeWorld(r io.Reader) (*worldFile, error) {
	var wf worldFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	return &wf, nil
}

func loadWorld(path string) (*worldFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeWorld(f)
}

// printMemory writes the non-zero cells of mem.
func printMemory(w io.Writer, mem *micro.Memory) {
	for i, v := range mem {
		if v != 0 {
			fmt.Fprintf(w, "  [%2d] = %d (%#x)\n", i, v, v)
		}
	}
}

func runCmd() *cobra.Command {
	var (
		worldPath string
		mapPath   string
		team      int
		score     int
		showMem   bool
	)
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a script once and print the action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readScript(args[0])
			if err != nil {
				return err
			}
			world := &micro.World{Team: team, Score: score}
			if worldPath != "" {
				wf, err := loadWorld(worldPath)
				if err != nil {
					return err
				}
				world.Self, world.Chests, world.Characters = wf.Self, wf.Chests, wf.Characters
				if !cmd.Flags().Changed("team") {
					world.Team = wf.Team
				}
				if !cmd.Flags().Changed("score") {
					world.Score = wf.Score
				}
			}
			if mapPath != "" {
				if world.Map, err = sandbox.LoadMap(mapPath); err != nil {
					return err
				}
			}

			var mem micro.Memory
			action := newEngine().Exec(src, &mem, world)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, actionLine(action))
			if showMem {
				printMemory(out, &mem)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&worldPath, "world", "", "World snapshot JSON file")
	cmd.Flags().StringVar(&mapPath, "map", "", "Map text file")
	cmd.Flags().IntVar(&team, "team", 1, "Team id seen by get_id")
	cmd.Flags().IntVar(&score, "score", 0, "Score seen by load_score")
	cmd.Flags().BoolVar(&showMem, "mem", false, "Print non-zero memory cells after the run")
	return cmd
}

func thinkCmd() *cobra.Command {
	var (
		mapPath string
		chests  int
		ticks   int
		workers int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "think FILE...",
		Short: "Host one team per script and print their decisions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var walls *micro.Map
			if mapPath != "" {
				m, err := sandbox.LoadMap(mapPath)
				if err != nil {
					return err
				}
				walls = m
			}
			arena := sandbox.NewArena(walls, rand.New(rand.NewSource(seed)))
			if err := arena.SpawnChests(chests); err != nil {
				return err
			}
			sched := sandbox.NewScheduler(arena, newEngine())
			sched.Workers = workers
			for _, path := range args {
				src, err := readScript(path)
				if err != nil {
					return err
				}
				t, err := arena.AddTeam("")
				if err != nil {
					return err
				}
				if err := sched.SetScript(t.ID, src); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return think(ctx, cmd.OutOrStdout(), sched, ticks)
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "", "Map text file (default: open map)")
	cmd.Flags().IntVar(&chests, "chests", 10, "Chests placed at random open cells")
	cmd.Flags().IntVar(&ticks, "ticks", 1, "Ticks to think")
	cmd.Flags().IntVar(&workers, "workers", 0, "Teams thinking at once (0 = one per team)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for spawn positions")
	return cmd
}

func think(ctx context.Context, w io.Writer, s *sandbox.Scheduler, ticks int) error {
	for i := 0; i < ticks; i++ {
		decisions, err := s.Think(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "tick %d\n", s.Tick-1)
		for _, d := range decisions {
			fmt.Fprintf(w, "  %v\n", d)
		}
	}
	return nil
}

// actionLine formats an action the way run prints it.
func actionLine(a engine.Action) string {
	return fmt.Sprintf("%d %v", int(a), a)
}
