// tracedump runs one of the built-in sample programs under the tracing
// engine and dumps the recorded trace and its dependency graph.
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"

	"github.com/phipsgabler/beyond-overdubbing/depgraph"
	"github.com/phipsgabler/beyond-overdubbing/track"
)

var (
	programFlag = &cli.StringFlag{
		Name:  "program",
		Usage: "program to trace (see --list)",
		Value: "poly",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file for tracing limits and leaves",
	}
	depsFlag = &cli.BoolFlag{
		Name:  "deps",
		Usage: "print the flattened dependency graph",
	}
	rawFlag = &cli.BoolFlag{
		Name:  "raw",
		Usage: "spew the raw context tree",
	}
	listFlag = &cli.BoolFlag{
		Name:  "list",
		Usage: "list built-in programs and exit",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "enable verbose tracking logs",
	}
)

func main() {
	app := &cli.App{
		Name:  "tracedump",
		Usage: "trace a sample program and dump the recorded execution",
		Flags: []cli.Flag{
			programFlag,
			configFlag,
			depsFlag,
			rawFlag,
			listFlag,
			debugFlag,
		},
		ArgsUsage: "[program arguments, parsed as bool/int/float literals]",
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tracedump:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	source := programs()
	if c.Bool(listFlag.Name) {
		names := make([]string, 0, len(source))
		for name := range source {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	cfg := track.DefaultConfig()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := track.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.Bool(debugFlag.Name) {
		cfg.Debug = true
	}

	t, err := track.New(cfg, source, track.WithPrimitives(primitives()))
	if err != nil {
		return err
	}

	name := c.String(programFlag.Name)
	if _, ok := source[name]; !ok {
		return fmt.Errorf("unknown program %q, try --list", name)
	}
	args := defaultArgs()[name]
	if c.NArg() > 0 {
		args = args[:0]
		for _, raw := range c.Args().Slice() {
			args = append(args, parseLiteral(raw))
		}
	}

	result, root, err := t.Call(name, args...)
	if err != nil {
		// The sealed partial trace is still worth showing.
		fmt.Println(root)
		return err
	}
	fmt.Printf("%s%v = %#v\n\n", name, args, result)
	fmt.Println(root)

	if c.Bool(depsFlag.Name) {
		g := depgraph.Build(root, depgraph.Options{Marker: isModelMarker})
		fmt.Println()
		fmt.Print(g.Format())
	}
	if c.Bool(rawFlag.Name) {
		fmt.Println()
		spew.Dump(root)
	}
	return nil
}

// parseLiteral interprets a command-line argument as the most specific of
// bool, int, float64, falling back to the raw string.
func parseLiteral(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
