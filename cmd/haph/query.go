package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tamirms/haph"
)

func runGet(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	path := fs.String("map", "", "map file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-map is required")
	}

	info, err := haph.ReadInfo(*path)
	if err != nil {
		return err
	}
	m, err := openMap(*path, info)
	if err != nil {
		return err
	}

	missing := false
	for _, key := range fs.Args() {
		if v, ok := m.Lookup(key); ok {
			fmt.Printf("%s\t%s\n", key, v)
		} else {
			fmt.Fprintf(os.Stderr, "%s: not found\n", key)
			missing = true
		}
	}
	if missing {
		return errNotFound
	}
	return nil
}

func runInfo(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	path := fs.String("map", "", "map file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-map is required")
	}

	info, err := haph.ReadInfo(*path)
	if err != nil {
		return err
	}

	fmt.Printf("File:        %s\n", *path)
	fmt.Printf("Size:        %d bytes\n", info.Size)
	fmt.Printf("Version:     %d\n", info.Version)
	fmt.Printf("Hasher:      %s\n", info.Hasher)
	fmt.Printf("Width:       %d bits\n", info.WordBytes*8)
	fmt.Printf("Entries:     %d\n", info.NumEntries)
	fmt.Printf("Buckets:     %d\n", info.NumBuckets)
	fmt.Printf("Compressed:  %v\n", info.Compressed)
	if info.NumEntries > 0 {
		bits := float64(uint64(info.NumBuckets)*2*uint64(info.WordBytes)*8) / float64(info.NumEntries)
		fmt.Printf("Bits/key:    %.2f (displacements)\n", bits)
	}
	return nil
}
