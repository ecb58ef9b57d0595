package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"uk.ac.bris.cs/tilelife/gol"
	"uk.ac.bris.cs/tilelife/sdl"
)

// main is the function called when starting the simulator with 'go run .'
func main() {
	runtime.LockOSThread()
	var params gol.Params

	flag.IntVar(
		&params.GridWidth,
		"n",
		32,
		"Specify the width of the square grid. Defaults to 32.")

	flag.IntVar(
		&params.Workers,
		"workers",
		4,
		"Specify the number of workers, one per tile; must be a perfect square. Defaults to 4.")

	flag.IntVar(
		&params.Turns,
		"turns",
		500,
		"Specify the number of turns to process. Defaults to 500.")

	flag.DurationVar(
		&params.Delay,
		"delay",
		100*time.Millisecond,
		"Specify the pause per generation. Defaults to 100ms.")

	seed := flag.String(
		"seed",
		"random",
		"Specify the initial pattern: random, glider or image.")

	flag.StringVar(
		&params.ImagePath,
		"image",
		"",
		"Specify the pgm file loaded by -seed image.")

	flag.Int64Var(
		&params.RandSeed,
		"rand",
		0,
		"Specify the PRNG seed for -seed random. 0 seeds from the clock.")

	render := flag.String(
		"render",
		"off",
		"Specify terminal rendering: off, gather or local.")

	flag.BoolVar(
		&params.Colour,
		"colour",
		false,
		"Colour gathered frames by owning tile.")

	useSdl := flag.Bool(
		"sdl",
		false,
		"Show the grid in a window while the simulation runs.")

	wait := flag.Bool(
		"wait",
		false,
		"Wait for ENTER before the first turn. Terminal rendering always waits unless stdin is piped.")

	hub := flag.String(
		"hub",
		os.Getenv("HUB_HOST"),
		"Run on a remote hub: host with RPC on port 2000 and the event stream on 2001.")

	flag.Parse()

	switch *seed {
	case "random":
		params.Seed = gol.SeedRandom
	case "glider":
		params.Seed = gol.SeedGlider
	case "image":
		params.Seed = gol.SeedImage
	default:
		fmt.Fprintf(os.Stderr, "unknown seed %q\n", *seed)
		os.Exit(2)
	}

	switch *render {
	case "off":
		params.Render = gol.RenderOff
	case "gather":
		params.Render = gol.RenderGathered
	case "local":
		params.Render = gol.RenderLocal
	default:
		fmt.Fprintf(os.Stderr, "unknown render mode %q\n", *render)
		os.Exit(2)
	}

	if err := params.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	stdin := bufio.NewReader(os.Stdin)
	if *wait || (params.Render != gol.RenderOff && !*useSdl) {
		if stdinIsTerminal() {
			fmt.Print("Ready to start? Press ENTER to continue.")
			_, _ = stdin.ReadString('\n')
		}
	}

	keyPresses := make(chan rune, 10)
	events := make(chan gol.Event, 1000)

	if *hub == "" {
		go gol.Run(params, events, keyPresses)
	} else {
		go gol.RunRemote(params, *hub+":2000", *hub+":2001", events, keyPresses)
	}

	if *useSdl {
		sdl.Run(params, events, keyPresses)
		return
	}

	// Forward control keys typed on stdin (a line buffered terminal
	// flushes them on ENTER)
	go func() {
		for {
			char, _, err := stdin.ReadRune()
			if err != nil {
				return
			}
			switch char {
			case 's', 'q', 'p', 'k':
				keyPresses <- char
			}
		}
	}()

	for event := range events {
		switch e := event.(type) {
		case gol.AliveCellsCount:
			if params.Render == gol.RenderOff {
				fmt.Println(e)
			}
		case gol.FinalTurnComplete:
			fmt.Printf("%d cells alive after %d turns\n", len(e.Alive), e.CompletedTurns)
		}
	}
}

func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}
