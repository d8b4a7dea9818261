// cmd/fundamgen turns an exported page document into page source.
//
// It reads a JSON or YAML export (a file argument, or stdin), rebuilds the
// component tree and writes the generated React module. With -check the
// output is parsed back and the tool fails on any parse error.
//
//	fundamgen -o UsersPage.jsx users.page.yaml
//	fundamgen -catalog extra.cue -format json < page.json
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cdrslab/fundam-builder/internal/codegen"
	"github.com/cdrslab/fundam-builder/internal/codesync"
	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/registry"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("fundamgen: ")
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

// options are the parsed command line.
type options struct {
	catalog string
	format  string
	out     string
	markup  bool
	check   bool
	input   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("fundamgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.catalog, "catalog", "", "CUE file extending the component catalog")
	fs.StringVar(&o.format, "format", "", "input format, json or yaml (default: from the file extension, else json)")
	fs.StringVar(&o.out, "o", "", "output file (default stdout)")
	fs.BoolVar(&o.markup, "markup", false, "write only the JSX markup, without imports and wrapper")
	fs.BoolVar(&o.check, "check", false, "parse the output back and fail on errors")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		o.input = fs.Arg(0)
	default:
		return o, errors.New("at most one input file")
	}
	return o, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	reg, err := registry.Default()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if o.catalog != "" {
		src, err := os.ReadFile(o.catalog)
		if err != nil {
			return fmt.Errorf("reading catalog: %w", err)
		}
		if err := reg.Extend(src, o.catalog); err != nil {
			return err
		}
	}

	format := page.FormatJSON
	switch {
	case o.format != "":
		if format, err = page.ParseFormat(o.format); err != nil {
			return err
		}
	case o.input != "" && o.input != "-":
		if f, err := page.ParseFormat(o.input); err == nil {
			format = f
		}
	}

	in := stdin
	if o.input != "" && o.input != "-" {
		f, err := os.Open(o.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	doc, err := page.Decode(in, format)
	if err != nil {
		return err
	}
	nodes, err := page.Import(doc, reg)
	if err != nil {
		return err
	}

	gen := codegen.New(reg, codegen.Options{})
	src := gen.Generate(nodes)
	if o.check {
		res := codesync.New(reg, codesync.WithIDGenerator(idgen.Sequence("chk"))).Parse(src)
		errs := 0
		for _, d := range res.Diagnostics {
			fmt.Fprintf(stderr, "%d:%d: %s: %s\n", d.Line, d.Col, d.Severity, d.Message)
			if d.Severity == codesync.SeverityError {
				errs++
			}
		}
		if errs > 0 {
			return fmt.Errorf("generated source has %d errors", errs)
		}
	}
	if o.markup {
		src = gen.Markup(nodes)
	}

	if o.out == "" {
		_, err = io.WriteString(stdout, src)
		return err
	}
	return os.WriteFile(o.out, []byte(src), 0o644)
}
