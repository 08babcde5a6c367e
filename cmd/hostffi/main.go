package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/hostffi/gen"
	"github.com/wippyai/hostffi/value"
)

const usage = `Usage: hostffi <command> [flags]

Commands:
  gen      generate cgo export wrappers for a native package
  inspect  list the exports of a native package (-i for interactive mode)
  encode   encode JSON as a value record
  decode   decode a value record
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "gen":
		err = runGen(args)
	case "inspect":
		err = runInspect(args)
	case "encode":
		err = runEncode(args, os.Stdin, os.Stdout)
	case "decode":
		err = runDecode(args, os.Stdin, os.Stdout)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// genFlags are shared by gen and inspect.
type genFlags struct {
	config    *string
	prefix    *string
	lastError *bool
	verbose   *bool
}

func addGenFlags(fs *flag.FlagSet) genFlags {
	return genFlags{
		config:    fs.String("config", "", "Path to hostffi.toml (default: search upwards from the working directory)"),
		prefix:    fs.String("prefix", "", "Prefix for derived export names"),
		lastError: fs.Bool("last-error", false, "Emit a <prefix>last_error export"),
		verbose:   fs.Bool("v", false, "Log skipped functions"),
	}
}

func (f genFlags) load() (*gen.Config, error) {
	if *f.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		gen.SetLogger(l)
	}

	var cfg *gen.Config
	var err error
	if *f.config != "" {
		cfg, err = gen.LoadConfig(*f.config)
	} else {
		cfg, err = gen.FindConfig(".")
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = gen.DefaultConfig("")
	}

	if *f.prefix != "" {
		cfg.Prefix = *f.prefix
	}
	if *f.lastError {
		cfg.EmitLastError = true
	}
	return cfg, nil
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	gf := addGenFlags(fs)
	output := fs.String("o", "", "Output file (- for stdout)")
	fs.Parse(args)

	cfg, err := gf.load()
	if err != nil {
		return err
	}
	if *output != "" {
		cfg.Output = *output
	}

	model, err := gen.Load(fs.Args(), cfg)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	for _, skip := range model.Skipped {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", skip)
	}

	src, err := gen.Generate(model, cfg)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if cfg.Output == "-" {
		_, err = os.Stdout.Write(src)
		return err
	}

	path := cfg.OutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Wrote %d exports to %s\n", len(model.Functions), path)
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	gf := addGenFlags(fs)
	interactive := fs.Bool("i", false, "Interactive mode with TUI")
	fs.Parse(args)

	cfg, err := gf.load()
	if err != nil {
		return err
	}

	model, err := gen.Load(fs.Args(), cfg)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	if *interactive {
		return runInteractive(model, cfg)
	}

	st := newStyles(isTerminal(os.Stdout))
	fmt.Printf("Package: %s\n", model.ImportPath)
	fmt.Printf("\nExports:\n")
	for _, fn := range model.Functions {
		fmt.Printf("  %s\n", st.signature(fn))
	}
	if len(model.Skipped) > 0 {
		fmt.Printf("\nSkipped:\n")
		for _, skip := range model.Skipped {
			fmt.Printf("  %s\n", st.err.Render(skip.Error()))
		}
	}
	return nil
}

func runEncode(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	list := fs.Bool("list", false, "Encode a JSON array as a record list")
	fs.Parse(args)

	input, err := argOrStdin(fs.Args(), stdin)
	if err != nil {
		return err
	}
	v, err := jsonToValue(input)
	if err != nil {
		return err
	}

	if *list {
		arr, ok := v.(value.Array)
		if !ok {
			return fmt.Errorf("-list needs a JSON array, got %s", v.Tag())
		}
		_, err = fmt.Fprintln(stdout, value.EncodeList(arr))
		return err
	}
	_, err = fmt.Fprintln(stdout, value.Encode(v))
	return err
}

func runDecode(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	list := fs.Bool("list", false, "Decode a record list")
	strict := fs.Bool("strict", false, "Reject unknown tags and trailing fields")
	asJSON := fs.Bool("json", false, "Print JSON instead of a tree")
	fs.Parse(args)

	input, err := argOrStdin(fs.Args(), stdin)
	if err != nil {
		return err
	}
	record := strings.TrimSpace(input)
	dec := value.Decoder{Strict: *strict}

	var v value.Value
	if *list {
		vs, err := dec.DecodeList(record)
		if err != nil {
			return err
		}
		v = value.Array(vs)
	} else if v, err = dec.Decode(record); err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(value.ToGo(v))
	}

	styled := false
	if f, ok := stdout.(*os.File); ok {
		styled = isTerminal(f)
	}
	_, err = fmt.Fprintln(stdout, newStyles(styled).tree(v))
	return err
}

func argOrStdin(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// jsonToValue parses JSON, keeping integral numbers as Int.
func jsonToValue(s string) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return value.FromGo(numbers(raw))
}

func numbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = numbers(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = numbers(v[k])
		}
		return v
	}
	return v
}
