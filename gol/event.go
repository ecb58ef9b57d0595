package gol

import (
	"fmt"

	"uk.ac.bris.cs/tilelife/util"
)

// Event represents any notification the simulation sends to its observers
// (window, terminal, tests).
type Event interface {
	fmt.Stringer
}

// AliveCellsCount reports the number of currently alive cells. Sent every
// two seconds while the simulation runs.
type AliveCellsCount struct {
	CompletedTurns int
	CellsCount     int
}

// ImageOutputComplete is sent every time a pgm snapshot has been written.
type ImageOutputComplete struct {
	CompletedTurns int
	Filename       string
}

// StateChange is sent every time the execution state changes.
type StateChange struct {
	CompletedTurns int
	NewState       State
}

// CellFlipped reports a single cell changing state.
type CellFlipped struct {
	CompletedTurns int
	Cell           util.Cell
}

// CellsFlipped reports many cells changing state in one generation. The
// window renderer consumes these to keep its texture current.
type CellsFlipped struct {
	CompletedTurns int
	Cells          []util.Cell
}

// TurnComplete is sent once per fully computed generation.
type TurnComplete struct {
	CompletedTurns int
}

// FinalTurnComplete carries the alive cells of the finished simulation.
// Tests consume this event directly.
type FinalTurnComplete struct {
	CompletedTurns int
	Alive          []util.Cell
}

// State represents a change in the state of execution.
type State int

const (
	Paused State = iota
	Executing
	Quitting
)

func (state State) String() string {
	switch state {
	case Paused:
		return "Paused"
	case Executing:
		return "Executing"
	case Quitting:
		return "Quitting"
	default:
		return "Incorrect State"
	}
}

func (event AliveCellsCount) String() string {
	return fmt.Sprintf("Turn %d Alive Cells Count %d", event.CompletedTurns, event.CellsCount)
}

func (event ImageOutputComplete) String() string {
	return fmt.Sprintf("Turn %d Image Output Complete %s", event.CompletedTurns, event.Filename)
}

func (event StateChange) String() string {
	return fmt.Sprintf("Turn %d State Change %v", event.CompletedTurns, event.NewState)
}

func (event CellFlipped) String() string {
	return fmt.Sprintf("Turn %d Cell Flipped %v", event.CompletedTurns, event.Cell)
}

func (event CellsFlipped) String() string {
	return fmt.Sprintf("Turn %d Cells Flipped (%d cells)", event.CompletedTurns, len(event.Cells))
}

func (event TurnComplete) String() string {
	return fmt.Sprintf("Turn %d Complete", event.CompletedTurns)
}

func (event FinalTurnComplete) String() string {
	return fmt.Sprintf("Final Turn %d Complete (%d alive)", event.CompletedTurns, len(event.Alive))
}
