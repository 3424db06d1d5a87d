package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tamirms/haph"
)

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	in := fs.String("in", "", "input file of key<TAB>value lines (- for stdin)")
	out := fs.String("out", "", "output map file")
	configPath := fs.String("config", "", "TOML build configuration")
	verbose := fs.Bool("v", false, "verbose logging")
	var bf buildFlags
	bf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("-in and -out are required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg = bf.merge(fs, cfg)

	log, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	id, err := haph.ParseHasherID(cfg.Hasher)
	if err != nil {
		return err
	}

	entries, err := readEntries(*in)
	if err != nil {
		return err
	}
	log.Info("read input", zap.String("path", *in), zap.Int("entries", len(entries)))

	start := time.Now()
	m, err := buildMap(ctx, entries, id, cfg.Width,
		haph.WithWorkers(cfg.Workers),
		haph.WithMaxSeedAttempts(cfg.MaxSeedAttempts),
		haph.WithLogger(log))
	if err != nil {
		return err
	}
	buildDuration := time.Since(start)

	if err := m.WriteFile(*out, stringCodec, stringCodec, haph.WithCompression(cfg.Compress)); err != nil {
		return err
	}

	st := m.Stats()
	fmt.Printf("Built %s: %d entries, %d buckets, %.2f bits/key, %d seed attempts in %v\n",
		*out, st.NumEntries, st.NumBuckets, st.BitsPerKey, st.SeedAttempts, buildDuration)
	return nil
}

// readEntries parses key<TAB>value lines. Blank lines are skipped; a line
// without a tab is a key with an empty value.
func readEntries(path string) ([]haph.Entry[string, string], error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var entries []haph.Entry[string, string]
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, "\t")
		entries = append(entries, haph.Entry[string, string]{Key: key, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}
