package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/comalice/smartstate"
	"github.com/comalice/smartstate/internal/extensibility"
	"github.com/comalice/smartstate/internal/logging"
	"github.com/comalice/smartstate/internal/production"
)

// setFlags collects repeated -set key=value arguments.
type setFlags map[string]any

func (s setFlags) String() string {
	parts := make([]string, 0, len(s))
	for _, k := range smartstate.Props(s).Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, s[k]))
	}
	return strings.Join(parts, ",")
}

func (s setFlags) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	s[strings.TrimSpace(key)] = parseValue(value)
	return nil
}

// parseValue reads v as JSON when it parses, else as a plain string.
func parseValue(v string) any {
	var out any
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return v
	}
	return out
}

func parseArgs(args []string, stderr io.Writer) (config, error) {
	fs := flag.NewFlagSet("smartstate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, `
smartstate - evaluate HCL-defined reactive state classes.

Usage:
  smartstate [options] [CLASSES_FILE]

Options:
`)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "Path to a TOML config file.")
	classes := fs.String("classes", "", "Path to the HCL class file.")
	class := fs.String("class", "", "Class to instantiate. Defaults to the first class in the file.")
	format := fs.String("format", "", "Output format: json, yaml or toml.")
	logLevel := fs.String("log-level", "", "Log level: trace, debug, info, warn, error or disabled.")
	load := fs.String("load", "", "Restore the state from this snapshot file.")
	save := fs.String("save", "", "Write the final snapshot to this file.")
	maxWaves := fs.Int("max-waves", 0, "Maximum commit waves per transaction.")
	dot := fs.Bool("dot", false, "Print the class graph as Graphviz DOT instead of the state.")
	schema := fs.Bool("schema", false, "Print the class schema instead of the state.")
	sets := setFlags{}
	fs.Var(sets, "set", "Set key=value after creation. Values are parsed as JSON when possible. Repeatable.")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			return config{}, err
		}
	}
	if fs.NArg() > 0 {
		cfg.Classes = fs.Arg(0)
	}
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Classes, *classes)
	overlay(&cfg.Class, *class)
	overlay(&cfg.Format, *format)
	overlay(&cfg.LogLevel, *logLevel)
	overlay(&cfg.Load, *load)
	overlay(&cfg.Save, *save)
	if *maxWaves > 0 {
		cfg.MaxWaves = *maxWaves
	}
	for k, v := range sets {
		cfg.Set[k] = v
	}
	cfg.PrintDOT = *dot
	cfg.PrintSchema = *schema

	if cfg.Classes == "" {
		fs.Usage()
		return config{}, errors.New("no class file given")
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	logCfg := logging.Resolve(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logCfg.Level = lvl
	}
	log := logging.New(logCfg, stderr)
	ctx = log.WithContext(ctx)

	cat, err := extensibility.NewLoader(extensibility.WithLogger(log)).LoadFile(cfg.Classes)
	if err != nil {
		return err
	}
	if cfg.Class == "" {
		names := cat.Names()
		if len(names) == 0 {
			return fmt.Errorf("%s declares no classes", cfg.Classes)
		}
		cfg.Class = names[0]
	}
	class, ok := cat.Class(cfg.Class)
	if !ok {
		return fmt.Errorf("%s: no class %q", cfg.Classes, cfg.Class)
	}

	vis := &production.Visualizer{}
	if cfg.PrintSchema {
		data, err := vis.ExportJSON(class.Schema())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s\n", data)
		return err
	}

	s, err := newState(ctx, cfg, cat, class, log)
	if err != nil {
		return err
	}
	defer s.Destroy()

	if len(cfg.Set) > 0 {
		if err := s.Set(cfg.Set); err != nil {
			return err
		}
	}

	if cfg.PrintDOT {
		_, err := io.WriteString(stdout, vis.ExportDOT(class.Schema(), s.Get()))
		return err
	}

	format, err := production.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	env := production.NewEnvelope(s)
	if cfg.Save != "" {
		if err := writeSnapshot(cfg.Save, env); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Save).Msg("snapshot saved")
	}
	data, err := production.Encode(env, format)
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

func newState(ctx context.Context, cfg config, cat *extensibility.Catalog, class *smartstate.Class, log zerolog.Logger) (*smartstate.State, error) {
	opts := []smartstate.Option{smartstate.WithLogger(log)}
	if cfg.MaxWaves > 0 {
		opts = append(opts, smartstate.WithMaxIteration(cfg.MaxWaves))
	}
	if cfg.Load == "" {
		return cat.New(class.Name(), nil, opts...)
	}

	data, err := os.ReadFile(cfg.Load)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Load, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return production.NewRegistry(class).Decode(data, production.FormatFromPath(cfg.Load), opts...)
}

func writeSnapshot(path string, env production.Envelope) error {
	data, err := production.Encode(env, production.FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
