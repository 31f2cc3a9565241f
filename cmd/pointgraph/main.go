// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// pointgraph builds radius graphs of point clouds and sums features over graph buckets, reading and
// writing NumPy ".npy" / ".npz" files.
//
// Usage:
//
//	pointgraph [-v=1] <command> [flags]
//
// Commands:
//
//	radius    Radius graph of a point cloud: pointgraph radius -points pos.npy -r_max 0.8 -out edges.npz
//	indexadd  Segment-sum of rows: pointgraph indexadd -indices dst.npy -features x.npy -out_dim 100
//	bench     Times both operations on random point clouds: pointgraph bench -n 100,1000,5000
//
// Flag defaults can be set with environment variables: POINTGRAPH_R_MAX, POINTGRAPH_PARALLELISM,
// POINTGRAPH_MAX_ROWS and POINTGRAPH_NO_COLOR.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// command is the signature of the subcommands.
type command func(cfg Config, args []string, w io.Writer) error

var commands = map[string]command{
	"radius":   runRadius,
	"indexadd": runIndexAdd,
	"bench":    runBench,
}

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, "Usage: %s [global flags] <radius|indexadd|bench> [flags]\n\n", os.Args[0])
	_, _ = fmt.Fprintf(out, "Use \"%s <command> -help\" for the flags of each command. Global flags:\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()

	cfg, err := LoadConfig(environMap(os.Environ()))
	if err != nil {
		klog.Exitf("Configuration: %+v", err)
	}
	cfg.applyColorProfile()

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing command. See '%s -help'", os.Args[0])
		os.Exit(1)
	}
	if err := run(cfg, args, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		klog.Errorf("%s: %v", args[0], err)
		klog.V(1).Infof("Stack trace: %+v", err)
		os.Exit(1)
	}
}

// run executes the command args[0] with the flags in args[1:].
func run(cfg Config, args []string, w io.Writer) error {
	cmd, found := commands[args[0]]
	if !found {
		return errors.Errorf("unknown command %q, valid commands are radius, indexadd and bench", args[0])
	}
	return cmd(cfg, args[1:], w)
}
