package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmcdole/scenedl/internal/adapter"
	"github.com/mmcdole/scenedl/internal/catalog"
	"github.com/mmcdole/scenedl/internal/domain"
	"github.com/mmcdole/scenedl/internal/extract"
	"github.com/mmcdole/scenedl/internal/fetch"
	"github.com/mmcdole/scenedl/internal/pipeline"
	"github.com/mmcdole/scenedl/internal/prompt"
	"github.com/mmcdole/scenedl/internal/store"
	"github.com/mmcdole/scenedl/internal/tui"
	"github.com/mmcdole/scenedl/internal/tui/styles"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

// options holds the command-line flags
type options struct {
	showVersion bool
	list        bool
	history     bool
	useTUI      bool
	keep        bool
	initConfig  bool
	scene       string
	dir         string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}

	flg := flag.NewFlagSet("scenedl", flag.ContinueOnError)
	flg.BoolVar(&opts.showVersion, "v", false, "print version")
	flg.BoolVar(&opts.showVersion, "version", false, "print version")
	flg.BoolVar(&opts.list, "list", false, "print the scene catalog and exit")
	flg.BoolVar(&opts.history, "history", false, "print installed scenes and exit")
	flg.BoolVar(&opts.useTUI, "tui", false, "choose the scene in a full-screen picker")
	flg.BoolVar(&opts.keep, "keep", false, "keep the archive after extraction")
	flg.BoolVar(&opts.initConfig, "init-config", false, "write a default config file and exit")
	flg.StringVar(&opts.scene, "scene", "", "download the named scene without prompting")
	flg.StringVar(&opts.dir, "dir", "", "download and extract into this directory")

	if err := flg.Parse(args); err != nil {
		return nil, err
	}
	if flg.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", flg.Args())
	}
	if opts.useTUI && opts.scene != "" {
		return nil, errors.New("-tui and -scene are mutually exclusive")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("scenedl %s\n", Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, opts, os.Stdin, os.Stdout, isTerminal(os.Stdout))
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render(fmt.Sprintf("%s Error: %v", styles.FailedChar, err)))
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func run(ctx context.Context, opts *options, in io.Reader, out io.Writer, tty bool) error {
	// Load configuration
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dir != "" {
		cfg.Download.Dir = opts.dir
	}
	if opts.keep {
		cfg.Download.KeepArchive = true
	}

	if opts.initConfig {
		path, err := adapter.SaveConfig(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
		return nil
	}

	// Setup logger
	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting scenedl", "version", Version)

	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}

	if opts.list {
		prompt.PrintMenu(out, cat)
		return nil
	}

	history, err := store.NewHistoryStore(cfg.State.File)
	if err != nil {
		// History is optional; another running instance may hold the lock
		logger.Warn("install history unavailable", "file", cfg.State.File, "error", err)
		history, _ = store.NewHistoryStore("")
	}
	defer history.Close()

	if opts.history {
		printHistory(out, history.List())
		return nil
	}

	scene, err := chooseScene(opts, cat, history, in, out, tty)
	if err != nil {
		return err
	}
	logger.Info("scene selected", "scene", scene.Name)

	fetcher := fetch.New(fetch.Options{
		ChunkSize: cfg.Download.ChunkSize,
		Timeout:   cfg.Download.Timeout,
		Resume:    cfg.Download.Resume,
		UserAgent: cfg.Download.UserAgent,
	}, logger)
	extractor := extract.New(logger)

	svc := pipeline.NewService(fetcher, extractor, history, out, pipeline.Options{
		Dir:         cfg.Download.Dir,
		KeepArchive: cfg.Download.KeepArchive,
	}, logger)

	rec, err := svc.Process(ctx, scene, fetch.NewMeter(out, tty))
	if err != nil {
		logger.Error("scene install failed", "scene", scene.Name, "error", err)
		return err
	}

	fmt.Fprintln(out, styles.SuccessStyle.Render(
		fmt.Sprintf("%s Installed %s into %s", styles.InstalledChar, rec.Scene, rec.Dir)))
	logger.Info("shutting down")
	return nil
}

// chooseScene picks a scene from the -scene flag, the TUI picker, or the
// numbered prompt, in that order of preference.
func chooseScene(
	opts *options,
	cat *catalog.Catalog,
	history domain.HistoryStore,
	in io.Reader,
	out io.Writer,
	tty bool,
) (domain.Scene, error) {
	switch {
	case opts.scene != "":
		return cat.Find(opts.scene)

	case opts.useTUI:
		if !tty {
			return domain.Scene{}, errors.New("-tui needs an interactive terminal")
		}
		installed := make(map[string]bool)
		for _, rec := range history.List() {
			installed[rec.Scene] = true
		}
		return tui.Pick(in, out, cat.List(), installed)

	default:
		return prompt.Select(in, out, cat)
	}
}

func printHistory(w io.Writer, records []domain.InstallRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, styles.DimStyle.Render("No scenes installed yet."))
		return
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%s %s  %s  %d bytes  %s\n",
			styles.SuccessStyle.Render(styles.InstalledChar),
			rec.Scene,
			rec.InstalledAt.Local().Format("2006-01-02 15:04"),
			rec.Bytes,
			rec.Dir,
		)
	}
}
