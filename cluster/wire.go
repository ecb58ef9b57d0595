// Package cluster runs the simulation across machines: a hub routes halo
// pieces between single-tile nodes and streams results back to the local
// controller.
package cluster

import (
	"time"

	"uk.ac.bris.cs/tilelife/torus"
)

// Message types streamed from the hub to the local controller.
const (
	EVENT_TURN_COMPLETE = iota
	EVENT_PAUSE
	EVENT_RESUME
	EVENT_SAVE
	EVENT_QUIT
	EVENT_KILL
	EVENT_FLIPPED
)

// HubParams describes a whole simulation to the hub.
type HubParams struct {
	Turns       int
	Workers     int
	GridWidth   int
	Delay       time.Duration // pause per generation
	RenderLocal bool          // nodes draw their own tiles
	Pixels      []byte        // Compressed pixel data
	Initials    []byte        // Compressed positions of initial alive cells (used when Pixels is nil)
	SizeInt     int           // Minimum number of bytes to represent the grid width
}

// NodeParams carries one tile of the simulation to the node serving it.
type NodeParams struct {
	Turns       int
	Workers     int
	GridWidth   int
	Rank        int
	Chunk       []uint8 // The tile's cells, row-major
	RenderLocal bool
}

// InitReply returns the outgoing halo pieces of a freshly loaded tile,
// ready for the first exchange.
type InitReply struct {
	Halos torus.Halo
}

// StepArgs carries the eight incoming halo pieces of one generation,
// indexed by the slot they fill at the receiving tile.
type StepArgs struct {
	Halos torus.Halo
}

// StepReply carries the pieces cut after stepping plus the compressed
// flipped cells of the turn.
type StepReply struct {
	Halos   torus.Halo
	Flipped []byte
}
