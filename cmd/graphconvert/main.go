// Package main provides the CLI entrypoint for graphconvert.
//
// graphconvert applies a declarative rule set to an input document:
//   - Loads converter definitions from a YAML rule-set file
//   - Decodes the input document (JSON, CSV or XML)
//   - Runs the named converter over it
//   - Prints the converted result as JSON on stdout
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/antchfx/xmlquery"

	"graphconvert/contrib/tabular"
	"graphconvert/contrib/xmlconv"
	"graphconvert/convert"
	"graphconvert/ruleset"
)

func main() {
	var (
		rulesPath = flag.String("rules", "", "path to the YAML rule-set file")
		name      = flag.String("converter", "", "name of the converter to run")
		format    = flag.String("format", "json", "input format: json, csv or xml")
		inPath    = flag.String("in", "-", "input file, - for stdin")
	)
	flag.Parse()

	if *rulesPath == "" || *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*rulesPath, *name, *format, *inPath); err != nil {
		fmt.Fprintln(os.Stderr, "graphconvert:", err)
		os.Exit(1)
	}
}

func run(rulesPath, name, format, inPath string) error {
	file, err := ruleset.LoadFile(rulesPath)
	if err != nil {
		return err
	}

	defs, err := file.Build(convert.NewRegistry())
	if err != nil {
		return err
	}

	def, ok := defs[name]
	if !ok {
		return fmt.Errorf("converter %q is not defined in %s", name, rulesPath)
	}

	// Rule-set converters default to the map adapter; non-JSON inputs
	// need the matching document adapter.
	switch format {
	case "csv":
		def.Adapter = &tabular.Adapter{}
	case "xml":
		def.Adapter = &xmlconv.Adapter{}
	}

	source, err := readSource(format, inPath)
	if err != nil {
		return err
	}

	out, err := def.Convert(source)
	if err != nil {
		return err
	}
	if convert.IsOmit(out) {
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func readSource(format, path string) (any, error) {
	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		in = f
	}

	switch format {
	case "json":
		var v any
		if err := json.NewDecoder(in).Decode(&v); err != nil {
			return nil, fmt.Errorf("decode json input: %w", err)
		}

		return v, nil
	case "csv":
		return tabular.ReadCSV(in)
	case "xml":
		doc, err := xmlquery.Parse(in)
		if err != nil {
			return nil, fmt.Errorf("parse xml input: %w", err)
		}

		return doc, nil
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}
