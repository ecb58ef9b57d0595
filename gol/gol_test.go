package gol

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"uk.ac.bris.cs/tilelife/torus"
	"uk.ac.bris.cs/tilelife/util"
)

// stepReference evolves a flat n×n grid one generation with toroidal
// wrap, one cell at a time.
func stepReference(grid []uint8, n int) []uint8 {
	next := make([]uint8, n*n)
	for y := 0; y != n; y++ {
		for x := 0; x != n; x++ {
			sum := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dy == 0 && dx == 0 {
						continue
					}
					if grid[((y+dy+n)%n)*n+(x+dx+n)%n] != torus.Dead {
						sum++
					}
				}
			}
			if sum == 3 || (sum == 2 && grid[y*n+x] != torus.Dead) {
				next[y*n+x] = torus.Alive
			}
		}
	}
	return next
}

func aliveSet(grid []uint8, n int) map[util.Cell]bool {
	set := make(map[util.Cell]bool)
	for y := 0; y != n; y++ {
		for x := 0; x != n; x++ {
			if grid[y*n+x] != torus.Dead {
				set[util.Cell{X: x, Y: y}] = true
			}
		}
	}
	return set
}

func cellSet(cells []util.Cell) map[util.Cell]bool {
	set := make(map[util.Cell]bool)
	for _, c := range cells {
		set[c] = true
	}
	return set
}

func sameSet(t *testing.T, got, want map[util.Cell]bool) {
	t.Helper()
	for c := range want {
		if !got[c] {
			t.Errorf("cell %v should be alive", c)
		}
	}
	for c := range got {
		if !want[c] {
			t.Errorf("cell %v should be dead", c)
		}
	}
}

type runRecord struct {
	final  FinalTurnComplete
	turns  int
	states []StateChange
	images []ImageOutputComplete
}

// runGol drives a whole simulation and collects the events tests care
// about.
func runGol(p Params, keys <-chan rune) runRecord {
	events := make(chan Event)
	go Run(p, events, keys)
	var rec runRecord
	for event := range events {
		switch e := event.(type) {
		case FinalTurnComplete:
			rec.final = e
		case TurnComplete:
			rec.turns++
		case StateChange:
			rec.states = append(rec.states, e)
		case ImageOutputComplete:
			rec.images = append(rec.images, e)
		}
	}
	return rec
}

// writeTestPgm lays the given cells onto an n×n grid and writes it as a
// pgm file in a test-scoped directory.
func writeTestPgm(t *testing.T, n int, cells []util.Cell) string {
	t.Helper()
	grid := make([]uint8, n*n)
	for _, c := range cells {
		grid[c.Y*n+c.X] = torus.Alive
	}
	path := filepath.Join(t.TempDir(), fmt.Sprintf("%dx%d.pgm", n, n))
	header := fmt.Sprintf("P5\n%d %d\n255\n", n, n)
	if err := os.WriteFile(path, append([]byte(header), grid...), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		p       Params
		wantErr bool
	}{
		{Params{Turns: 1, Workers: 16, GridWidth: 32}, false},
		{Params{Turns: 1, Workers: 1, GridWidth: 8}, false},
		{Params{Turns: 0, Workers: 4, GridWidth: 8}, false},
		{Params{Turns: 1, Workers: 3, GridWidth: 9}, true},   // not a perfect square
		{Params{Turns: 1, Workers: 9, GridWidth: 32}, true},  // 32 does not divide by 3
		{Params{Turns: 1, Workers: 4, GridWidth: 7}, true},   // below minimum width
		{Params{Turns: -1, Workers: 4, GridWidth: 8}, true},  // negative turns
		{Params{Turns: 1, Workers: 4, GridWidth: 8, Seed: SeedImage}, true}, // no image path
	}
	for _, test := range tests {
		err := test.p.Validate()
		if test.wantErr && err == nil {
			t.Errorf("Validate(%+v) should fail", test.p)
		}
		if !test.wantErr && err != nil {
			t.Errorf("Validate(%+v): %v", test.p, err)
		}
	}
}

func TestRunRefusesInvalidParams(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Run should panic on a worker count that is not a perfect square")
		}
	}()
	Run(Params{Turns: 1, Workers: 3, GridWidth: 8}, nil, nil)
}

func TestStillLifeAcrossTiles(t *testing.T) {
	// A block straddling the corner where four tiles meet only survives
	// if every halo piece arrives where it should.
	block := []util.Cell{{X: 3, Y: 3}, {X: 4, Y: 3}, {X: 3, Y: 4}, {X: 4, Y: 4}}
	for _, workers := range []int{1, 4, 16} {
		p := Params{
			Turns:     5,
			Workers:   workers,
			GridWidth: 8,
			Seed:      SeedImage,
			ImagePath: writeTestPgm(t, 8, block),
		}
		rec := runGol(p, nil)
		if rec.turns != p.Turns {
			t.Errorf("workers=%d: completed %d turns, want %d", workers, rec.turns, p.Turns)
		}
		if rec.final.CompletedTurns != p.Turns {
			t.Errorf("workers=%d: final turn %d, want %d", workers, rec.final.CompletedTurns, p.Turns)
		}
		sameSet(t, cellSet(rec.final.Alive), cellSet(block))
	}
}

func TestBlinkerAcrossTiles(t *testing.T) {
	// A vertical blinker crossing the horizontal tile boundary rotates
	// through the vertical one, so both exchanges are exercised.
	vertical := []util.Cell{{X: 3, Y: 2}, {X: 3, Y: 3}, {X: 3, Y: 4}}
	horizontal := []util.Cell{{X: 2, Y: 3}, {X: 3, Y: 3}, {X: 4, Y: 3}}
	p := Params{
		Turns:     5,
		Workers:   4,
		GridWidth: 8,
		Seed:      SeedImage,
		ImagePath: writeTestPgm(t, 8, vertical),
	}
	rec := runGol(p, nil)
	sameSet(t, cellSet(rec.final.Alive), cellSet(horizontal))
}

func TestGliderLapsTorus(t *testing.T) {
	// A glider moves one cell down-right every four generations, so on
	// an 8×8 torus it is back at its seed position after 32.
	for _, workers := range []int{1, 4, 16} {
		p := Params{
			Turns:     32,
			Workers:   workers,
			GridWidth: 8,
			Seed:      SeedGlider,
		}
		want := seedGrid(p, nil)
		for i := 0; i != p.Turns; i++ {
			want = stepReference(want, p.GridWidth)
		}
		rec := runGol(p, nil)
		sameSet(t, cellSet(rec.final.Alive), aliveSet(want, p.GridWidth))
		sameSet(t, cellSet(rec.final.Alive), cellSet(gliderCells))
	}
}

func TestWorkersAgreeWithSequential(t *testing.T) {
	tests := []struct {
		n       int
		workers []int
	}{
		{8, []int{1, 4, 16}},
		{12, []int{4, 9, 36}},
	}
	for _, test := range tests {
		for _, workers := range test.workers {
			p := Params{
				Turns:     8,
				Workers:   workers,
				GridWidth: test.n,
				Seed:      SeedRandom,
				RandSeed:  99,
			}
			want := seedGrid(p, nil)
			for i := 0; i != p.Turns; i++ {
				want = stepReference(want, test.n)
			}
			rec := runGol(p, nil)
			if rec.turns != p.Turns {
				t.Errorf("n=%d workers=%d: completed %d turns, want %d", test.n, workers, rec.turns, p.Turns)
			}
			sameSet(t, cellSet(rec.final.Alive), aliveSet(want, test.n))
		}
	}
}

func TestZeroTurns(t *testing.T) {
	p := Params{
		Turns:     0,
		Workers:   4,
		GridWidth: 8,
		Seed:      SeedGlider,
	}
	rec := runGol(p, nil)
	if rec.turns != 0 {
		t.Errorf("completed %d turns, want 0", rec.turns)
	}
	if rec.final.CompletedTurns != 0 {
		t.Errorf("final turn %d, want 0", rec.final.CompletedTurns)
	}
	sameSet(t, cellSet(rec.final.Alive), cellSet(gliderCells))
}

// expectState drains control events until the wanted state change
// arrives.
func expectState(t *testing.T, ctl <-chan Event, want State) {
	t.Helper()
	for event := range ctl {
		if change, ok := event.(StateChange); ok {
			if change.NewState != want {
				t.Fatalf("state changed to %v, want %v", change.NewState, want)
			}
			return
		}
	}
	t.Fatalf("events closed before state change to %v", want)
}

func expectImage(t *testing.T, ctl <-chan Event) ImageOutputComplete {
	t.Helper()
	for event := range ctl {
		if image, ok := event.(ImageOutputComplete); ok {
			return image
		}
	}
	t.Fatal("events closed before image output")
	return ImageOutputComplete{}
}

func TestKeyControls(t *testing.T) {
	p := Params{
		Turns:     100000,
		Workers:   4,
		GridWidth: 8,
		Seed:      SeedRandom,
		RandSeed:  7,
	}
	events := make(chan Event)
	keys := make(chan rune)
	go Run(p, events, keys)

	// Forward only the control events; everything else must still be
	// drained or the distributor blocks.
	ctl := make(chan Event, 64)
	aliveEvents := 0
	go func() {
		for event := range events {
			switch event.(type) {
			case AliveCellsCount:
				aliveEvents++
			case StateChange, ImageOutputComplete, FinalTurnComplete:
				ctl <- event
			}
		}
		close(ctl)
	}()

	expectState(t, ctl, Executing)
	keys <- 'p'
	expectState(t, ctl, Paused)
	time.Sleep(2100 * time.Millisecond) // let the alive ticker fire while paused
	keys <- 's' // saving must work while paused
	saved := expectImage(t, ctl)
	if saved.CompletedTurns == p.Turns {
		t.Errorf("image saved after all %d turns, expected an early snapshot", p.Turns)
	}
	keys <- 'p'
	expectState(t, ctl, Executing)
	keys <- 'q'

	sawFinal := false
	var last Event
	for event := range ctl {
		if _, ok := event.(FinalTurnComplete); ok {
			sawFinal = true
		}
		last = event
	}
	if !sawFinal {
		t.Error("no final turn event after quitting")
	}
	change, ok := last.(StateChange)
	if !ok || change.NewState != Quitting {
		t.Errorf("last control event %v, want a state change to Quitting", last)
	}
	if aliveEvents == 0 {
		t.Error("no alive-count events; the ticker fires even while paused")
	}
}
