package main

import (
	"flag"
	"os"

	"uk.ac.bris.cs/tilelife/cluster"
)

// main is the function called when starting a node with 'go run .'
func main() {
	port := flag.Int("port", 0, "Port serving the tile RPC service. 0 picks a free one.")
	hub := flag.String("hub", getenvDefault("HUB_ADDR", "localhost:2002"),
		"The hub's node registration address.")
	flag.Parse()

	cluster.RunNode(*port, *hub)
}

func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
