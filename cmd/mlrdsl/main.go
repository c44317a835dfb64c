package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/mlrdsl"
	"github.com/gosuda/mlrdsl/ast"
	"github.com/gosuda/mlrdsl/config"
	mruntime "github.com/gosuda/mlrdsl/runtime"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var files, exprs stringList
	flag.Var(&files, "f", "read DSL source from file (repeatable)")
	flag.Var(&exprs, "e", "DSL expression (repeatable)")
	cfgPath := flag.String("c", config.DefaultPath(), "config file")
	iformat := flag.String("i", "", "input format: "+strings.Join(mruntime.InputFormats, "|"))
	oformat := flag.String("o", "", "output format: "+strings.Join(mruntime.OutputFormats, "|"))
	inferString := flag.Bool("S", false, "treat field values and literals as strings")
	inferFloat := flag.Bool("F", false, "infer numbers as floats only")
	flatsep := flag.String("flatsep", "", "separator for emitp prefixes and flattened keys")
	ofs := flag.String("ofs", "", "output field separator")
	ops := flag.String("ops", "", "output pair separator")
	implicitHeader := flag.Bool("implicit-header", false, "number CSV/TSV columns instead of reading a header")
	headerless := flag.Bool("headerless-output", false, "omit CSV/TSV header lines")
	jvstack := flag.Bool("jvstack", false, "print JSON records one field per line")
	quiet := flag.Bool("q", false, "do not pass records through; emit only")
	filter := flag.Bool("filter", false, "bare-boolean statements select records")
	tui := flag.Bool("tui", false, "show output in a terminal UI")
	repl := flag.Bool("repl", false, "interactive statement prompt")
	verbose := flag.Bool("v", false, "print the parsed syntax tree before running")
	dumpConfig := flag.Bool("dump-config", false, "print the effective configuration and exit")
	helpKeyword := flag.String("help-keyword", "", "print help for a keyword or function (\"all\" for every keyword)")
	flag.Parse()

	if *helpKeyword != "" {
		name := *helpKeyword
		if name == "all" {
			name = ""
		}
		if err := mruntime.WriteKeywordUsage(os.Stdout, name); err != nil {
			fail(err)
		}
		return
	}

	cfg, err := config.Load(*cfgPath, *cfgPath == config.DefaultPath())
	if err != nil {
		fail(err)
	}
	cfg.ApplyEnv()
	applyFlag(&cfg.InputFormat, *iformat)
	applyFlag(&cfg.OutputFormat, *oformat)
	applyFlag(&cfg.FlattenSep, *flatsep)
	applyFlag(&cfg.OFS, *ofs)
	applyFlag(&cfg.OPS, *ops)
	switch {
	case *inferString:
		cfg.Infer = "string"
	case *inferFloat:
		cfg.Infer = "float"
	}
	if *implicitHeader {
		cfg.ImplicitHeader = true
	}
	if *headerless {
		cfg.Headerless = true
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}
	if *dumpConfig {
		if err := config.Save(os.Stdout, cfg); err != nil {
			fail(err)
		}
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	app := appConfig{cfg: cfg, quiet: *quiet, filter: *filter, stack: *jvstack}
	if *repl {
		app.source = strings.Join(append(readFiles(files), exprs...), "\n")
		if err := runREPL(app, logger); err != nil {
			fail(err)
		}
		return
	}

	app.source, app.inputs, err = loadProgram(files, exprs, flag.Args())
	if err != nil {
		fail(err)
	}
	if *verbose {
		root, err := mlrdsl.Parse(app.source)
		if err != nil {
			fail(err)
		}
		if err := ast.Fprint(os.Stdout, root); err != nil {
			fail(err)
		}
	}

	if *tui {
		if len(app.inputs) == 0 {
			fail(fmt.Errorf("-tui needs input files; stdin is the terminal"))
		}
		p := tea.NewProgram(newModel(app, slog.New(slog.DiscardHandler)), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fail(fmt.Errorf("tui: %w", err))
		}
		return
	}

	if err := runPlain(app, logger); err != nil {
		fail(err)
	}
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func readFiles(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			fail(err)
		}
		out = append(out, string(b))
	}
	return out
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "mlrdsl: "+errStyle.Render(err.Error()))
	os.Exit(1)
}
