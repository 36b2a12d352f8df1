package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
	"github.com/peterh/liner"
	"github.com/pkg/profile"

	basil "github.com/basil-lang/basil"
)

const (
	appName     = "basil"
	historyFile = ".basil_history"
	promptMain  = ">>> "
	promptCont  = "... "
)

var (
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// config holds the optional settings file (~/.basilrc.yaml or --config).
type config struct {
	Prompt       string `yaml:"prompt"`
	ContPrompt   string `yaml:"cont_prompt"`
	History      string `yaml:"history"`
	NoColor      bool   `yaml:"no_color"`
	RandomSeed   *int64 `yaml:"random_seed"`
	ScriptFolder string `yaml:"script_folder"`
}

type cli struct {
	Config  string `help:"Path to a YAML settings file." type:"path"`
	Profile string `help:"Write a CPU profile to this directory." type:"path"`
	NoColor bool   `help:"Disable colored output."`

	Run     runCmd     `cmd:"" help:"Run a script file."`
	Eval    evalCmd    `cmd:"" help:"Evaluate an expression and print the result."`
	Repl    replCmd    `cmd:"" default:"withargs" help:"Start the interactive shell."`
	Version versionCmd `cmd:"" help:"Print the interpreter version."`
}

type runCmd struct {
	File string   `arg:"" help:"Script file to run." type:"existingfile"`
	Args []string `arg:"" optional:"" passthrough:"" help:"Arguments exposed to the script."`
}

type evalCmd struct {
	Expr string `arg:"" help:"Expression or statement list to evaluate."`
}

type replCmd struct{}

type versionCmd struct{}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name(appName),
		kong.Description("Basil language interpreter."),
		kong.UsageOnError(),
	)

	if c.Profile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(c.Profile)).Stop()
	}

	cfg := loadConfig(c.Config)
	if c.NoColor {
		cfg.NoColor = true
	}
	if cfg.NoColor {
		plain := lipgloss.NewStyle()
		errStyle, valueStyle, bannerStyle = plain, plain, plain
	}

	ctx.FatalIfErrorf(ctx.Run(&cfg))
}

// loadConfig reads the settings file when present; a missing file is not an
// error, a malformed one is reported and ignored.
func loadConfig(path string) config {
	cfg := config{Prompt: promptMain, ContPrompt: promptCont, History: historyFile}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg
		}
		path = filepath.Join(home, ".basilrc.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s: ignoring %s: %v\n", appName, path, err)
	}
	if cfg.Prompt == "" {
		cfg.Prompt = promptMain
	}
	if cfg.ContPrompt == "" {
		cfg.ContPrompt = promptCont
	}
	if cfg.History == "" {
		cfg.History = historyFile
	}
	return cfg
}

func newInterpreter(cfg *config) *basil.Interpreter {
	ip := basil.NewInterpreter()
	if cfg.RandomSeed != nil {
		ip.Seed(*cfg.RandomSeed)
	}
	return ip
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func (r *runCmd) Run(cfg *config) error {
	src, err := os.ReadFile(r.File)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", r.File, err)
	}

	ip := newInterpreter(cfg)
	ip.SetScriptArgs(fileAbsOrOrig(r.File), r.Args)

	if err := ip.Run(string(src)); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(basil.WrapErrorWithName(err, r.File, string(src)).Error()))
		os.Exit(1)
	}
	return nil
}

func fileAbsOrOrig(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ---------------------------------------------------------------------------
// eval
// ---------------------------------------------------------------------------

func (e *evalCmd) Run(cfg *config) error {
	ip := newInterpreter(cfg)
	v, err := ip.EvalSource(e.Expr)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(basil.WrapErrorWithSource(err, e.Expr).Error()))
		os.Exit(1)
	}
	if out := basil.FormatValue(v); out != "" {
		fmt.Println(valueStyle.Render(out))
	}
	return nil
}

// ---------------------------------------------------------------------------
// repl
// ---------------------------------------------------------------------------

const helpText = `REPL commands:
  :help         Show this help
  :load FILE    Load a script file into the session
  :reset        Discard all definitions and start over
  :quit         Exit the REPL
`

func (r *replCmd) Run(cfg *config) error {
	fmt.Println(bannerStyle.Render(fmt.Sprintf(
		"Basil %s\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", basil.Version)))

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, cfg.History)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ip := newInterpreter(cfg)

	for {
		code, ok := readByParseProbe(ln, cfg.Prompt, cfg.ContPrompt)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if strings.HasPrefix(trimmed, ":") {
			if path, ok := strings.CutPrefix(trimmed, ":load "); ok {
				loadInto(ip, strings.TrimSpace(path))
				continue
			}
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return nil
			case ":help":
				fmt.Print(helpText)
			case ":reset":
				ip = newInterpreter(cfg)
				fmt.Println("state cleared")
			default:
				fmt.Println("unknown command. Type :help for a list.")
			}
			continue
		}
		if trimmed == "" {
			continue
		}

		v, err := ip.EvalPersistentSource(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(basil.WrapErrorWithName(err, "<repl>", code).Error()))
			continue
		}
		if out := basil.FormatValue(v); out != "" {
			fmt.Println(valueStyle.Render(out))
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return nil
}

// loadInto reads a script file and binds its declarations into the live
// session.
func loadInto(ip *basil.Interpreter, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		return
	}
	if err := ip.LoadModules(string(data)); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(basil.WrapErrorWithName(err, path, string(data)).Error()))
		return
	}
	fmt.Println("loaded " + path)
}

// readByParseProbe accumulates lines until the input parses or fails with a
// definite (non-truncation) error, so multi-line blocks continue naturally.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		perr := basil.CheckInteractive(src)
		if perr == nil {
			return src, true
		}
		if basil.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func (v *versionCmd) Run(cfg *config) error {
	fmt.Printf("%s %s (built %s)\n", appName, basil.Version, basil.BuildDate)
	return nil
}
