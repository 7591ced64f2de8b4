package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/wingedpig/rfc3779/pkg/builder"
	"github.com/wingedpig/rfc3779/pkg/present"
)

const version = "1.0.0"

func main() {
	inPath := flag.String("in", "", "path to a builder config file (key: value per line); defaults to stdin")
	outPath := flag.String("out", "", "path to write the rendered presentation; defaults to stdout")
	configPath := flag.String("config", "", "alias for -in, kept for parity with other cmd/ front-ends")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rfc3779-cat version %s\n", version)
		return
	}

	in := *inPath
	if in == "" {
		in = *configPath
	}

	entries, err := readConfig(in)
	if err != nil {
		log.Fatalf("ERROR: failed to read configuration: %v", err)
	}

	b, err := builder.Build(entries)
	if err != nil {
		log.Fatalf("ERROR: failed to build address blocks: %v", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("ERROR: failed to open output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	if _, err := fmt.Fprint(out, present.Render(b)); err != nil {
		log.Fatalf("ERROR: failed to write output: %v", err)
	}
}

// readConfig reads "key: value" lines from path (or stdin if path is
// empty), skipping blank lines and "#"-prefixed comments, matching
// the RPSL-style line grammar the builder's value syntax is itself
// modelled on.
func readConfig(path string) ([]builder.Entry, error) {
	var r *os.File
	if path == "" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var entries []builder.Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx == -1 {
			log.Printf("WARN: skipping malformed config line: %q", line)
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		entries = append(entries, builder.Entry{Key: key, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
