package main

import (
	"flag"
	"os"

	"uk.ac.bris.cs/tilelife/cluster"
)

// main is the function called when starting the hub with 'go run .'
func main() {
	rpcAddr := flag.String("rpc", getenvDefault("RPC_ADDR", ":2000"),
		"Address serving controller RPC calls.")
	streamAddr := flag.String("stream", getenvDefault("STREAM_ADDR", ":2001"),
		"Address streaming results back to the controller.")
	registerAddr := flag.String("register", getenvDefault("REGISTER_ADDR", ":2002"),
		"Address accepting node registrations.")
	flag.Parse()

	cluster.RunHub(*rpcAddr, *streamAddr, *registerAddr)
}

func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
