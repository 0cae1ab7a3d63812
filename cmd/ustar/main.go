// Command ustar creates, lists and extracts USTAR archives.
//
//	ustar -c -f out.tar [-format v7] [-no-dirs] path...
//	ustar -r -f out.tar path...
//	ustar -t -f in.tar
//	ustar -x -f in.tar [-C dir] [-p] [name...]
//
// For -t and -x, -f may also be an http or https URL served with range
// support.
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
	"strings"
	"text/tabwriter"

	"github.com/meigma/ustar"
)

type config struct {
	create  bool
	append  bool
	list    bool
	extract bool

	file     string
	dir      string
	format   string
	noDirs   bool
	strict   bool
	owner    bool
	keep     bool
	verbose  bool
	progress bool
}

func main() {
	cfg := parseFlags()

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Args()); err != nil {
		logger.Error("ustar failed", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

func parseFlags() config {
	var cfg config
	flag.BoolVar(&cfg.create, "c", false, "create a new archive")
	flag.BoolVar(&cfg.append, "r", false, "append to an archive")
	flag.BoolVar(&cfg.list, "t", false, "list archive contents")
	flag.BoolVar(&cfg.extract, "x", false, "extract archive contents")
	flag.StringVar(&cfg.file, "f", "", "archive file")
	flag.StringVar(&cfg.dir, "C", ".", "extract into this directory")
	flag.StringVar(&cfg.format, "format", "ustar", "header format: ustar or v7")
	flag.BoolVar(&cfg.noDirs, "no-dirs", false, "do not record directory entries")
	flag.BoolVar(&cfg.strict, "strict", false, "fail when a file changes while it is archived")
	flag.BoolVar(&cfg.owner, "p", false, "restore owners on extraction")
	flag.BoolVar(&cfg.keep, "k", false, "keep existing files on extraction")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	flag.BoolVar(&cfg.progress, "progress", false, "print each entry as it is processed")
	flag.Parse()

	modes := 0
	for _, m := range []bool{cfg.create, cfg.append, cfg.list, cfg.extract} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		usage("exactly one of -c, -r, -t or -x must be specified")
	}
	if cfg.file == "" {
		usage("option -f must be specified")
	}
	if (cfg.create || cfg.append) && flag.NArg() == 0 {
		usage("missing path to archive")
	}
	return cfg
}

func usage(msg string) {
	fmt.Fprintln(flag.CommandLine.Output(), msg)
	flag.Usage()
	os.Exit(2)
}

func run(ctx context.Context, cfg config, logger *slog.Logger, args []string) error {
	opts := []ustar.Option{ustar.WithLogger(logger)}
	if cfg.progress {
		opts = append(opts, ustar.WithProgress(func(ev ustar.ProgressEvent) {
			if ev.Path != "" {
				fmt.Fprintf(os.Stderr, "%s %s\n", ev.Stage, ev.Path)
			}
		}))
	}

	switch {
	case cfg.create, cfg.append:
		return write(ctx, cfg, args, opts)
	case cfg.list:
		return list(cfg.file, os.Stdout, opts)
	default:
		return extract(ctx, cfg, args, opts)
	}
}

func write(ctx context.Context, cfg config, paths []string, opts []ustar.Option) error {
	format, err := parseFormat(cfg.format)
	if err != nil {
		return err
	}
	opts = append(opts,
		ustar.WithFormat(format),
		ustar.WithDirectoryHeaders(!cfg.noDirs),
	)
	if cfg.strict {
		opts = append(opts, ustar.WithChangeDetection(ustar.ChangeDetectionStrict))
	}

	create := ustar.Create
	if cfg.append {
		create = ustar.Append
	}
	e, err := create(cfg.file, opts...)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := e.ArchiveTree(ctx, p); err != nil {
			return errors.Join(err, e.Close())
		}
	}
	if err := e.Finish(); err != nil {
		return errors.Join(err, e.Close())
	}
	d, err := e.Digest()
	if err != nil {
		return errors.Join(err, e.Close())
	}
	if err := e.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", d, cfg.file)
	return nil
}

// open opens file for reading, over HTTP when it is a URL.
func open(file string, opts []ustar.Option) (*ustar.Engine, error) {
	if strings.HasPrefix(file, "http://") || strings.HasPrefix(file, "https://") {
		return ustar.OpenURL(file, opts...)
	}
	return ustar.Open(file, opts...)
}

func list(file string, out io.Writer, opts []ustar.Option) error {
	e, err := open(file, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	tw := tabwriter.NewWriter(out, 0, 4, 1, ' ', tabwriter.AlignRight)
	for h, err := range e.All() {
		if err != nil {
			return err
		}
		owner := h.Uname
		if owner == "" {
			owner = fmt.Sprint(h.UID)
		}
		group := h.Gname
		if group == "" {
			group = fmt.Sprint(h.GID)
		}
		name := h.Name
		if h.Linkname != "" {
			name += " -> " + h.Linkname
		}
		fmt.Fprintf(tw, "%s\t%s/%s\t%d\t%s\t%s\t\n",
			h.FileMode(), owner, group, h.PayloadSize(), h.ModTime.Format("2006-01-02 15:04"), name)
	}
	return tw.Flush()
}

func extract(ctx context.Context, cfg config, names []string, opts []ustar.Option) error {
	opts = append(opts,
		ustar.WithOutputDir(cfg.dir),
		ustar.WithPreserveOwner(cfg.owner),
		ustar.WithOverwrite(!cfg.keep),
	)
	e, err := open(cfg.file, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	if len(names) == 0 {
		return e.ExtractAll(ctx)
	}
	for _, name := range names {
		if err := e.Extract(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func parseFormat(s string) (ustar.Format, error) {
	switch s {
	case "ustar":
		return ustar.FormatUSTAR, nil
	case "v7":
		return ustar.FormatV7, nil
	default:
		return ustar.FormatUnspecified, fmt.Errorf("unknown format %q", s)
	}
}
