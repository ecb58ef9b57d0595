package util

import "fmt"

// Cell is a single grid position, X column and Y row.
type Cell struct {
	X, Y int
}

func (cell Cell) String() string {
	return fmt.Sprintf("(%d, %d)", cell.X, cell.Y)
}

// Check panics on any io error that leaves the program in an unusable state.
func Check(e error) {
	if e != nil {
		panic(e)
	}
}
