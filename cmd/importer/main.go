package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"
	"golang.org/x/term"

	"github.com/QEStudios/TrackerImporter/parser"
	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/parser/ins"
	"github.com/QEStudios/TrackerImporter/song"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	red     = color.New(color.FgRed).SprintfFunc()
)

var logger *logrus.Logger

func main() {
	var (
		instrumentMode bool
		dump           bool
		noCompat       bool
		verbose        bool
		order          int
	)
	pflag.BoolVarP(&instrumentMode, "instrument", "i", false, "treat every file as an instrument file or bank")
	pflag.BoolVarP(&dump, "dump", "d", false, "dump the decoded data structures")
	pflag.BoolVar(&noCompat, "no-compat", false, "leave module compatibility flags at their defaults")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "log decoder progress")
	pflag.IntVarP(&order, "order", "o", -1, "print the patterns played at this order of a module")
	pflag.Parse()

	color.NoColor = color.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: color.NoColor, FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		// Warnings are printed with the summary.
		logger.SetLevel(logrus.ErrorLevel)
	}

	// Get the current working directory.
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatalf("failed to get current working directory: %v", err)
	}

	paths, err := choosePaths(cwd, pflag.Args())
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Info("user cancelled the file dialog")
			os.Exit(1)
		}
		logger.Fatalf("failed to determine file path: %v", err)
	}

	cfg := parser.Config{Logger: logger}
	cfg.Module.SkipCompat = noCompat

	failed := false
	var batch []ins.File
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatalf("error opening file: %v", err)
		}
		if instrumentMode || !parser.IsModuleFile(data) {
			batch = append(batch, ins.File{Name: path, Data: data})
			continue
		}

		res, err := parser.LoadModule(data, cfg)
		if err != nil {
			fmt.Println(red("%s: %v", filepath.Base(path), err))
			failed = true
			continue
		}
		printModule(path, res.Song)
		printWarnings(res.Warnings)
		if order >= 0 {
			table, err := res.Song.OrderTable(order)
			if err != nil {
				fmt.Println(red("%v", err))
				failed = true
			} else {
				fmt.Print(table)
			}
		}
		if dump {
			spew.Dump(res.Song)
		}
	}

	if len(batch) > 0 {
		res := parser.LoadInstrumentBatch(batch, cfg)
		for _, f := range res.Files {
			if f.Err != nil {
				fmt.Println(red("%v", f.Err))
				failed = true
				continue
			}
			printInstruments(f.Name, f.Result)
			printWarnings(f.Result.Warnings)
			if dump {
				spew.Dump(f.Result.Instruments)
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}

// choosePaths returns the file paths either from the command-line args
// or from an interactive file dialog.
func choosePaths(cwd string, args []string) ([]string, error) {
	// If arguments were passed to the program, use them.
	if len(args) > 0 {
		paths := make([]string, 0, len(args))
		for _, arg := range args {
			absPath, err := filepath.Abs(arg)
			if err != nil {
				return nil, fmt.Errorf("cannot get absolute path: %w", err)
			}
			if err := validatePath(absPath); err != nil {
				return nil, fmt.Errorf("passed argument is not a valid path: %w", err)
			}
			paths = append(paths, absPath)
		}
		return paths, nil
	}

	// Otherwise open the file dialog.
	instrumentExts := make([]string, 0, len(ins.Extensions()))
	for _, ext := range ins.Extensions() {
		instrumentExts = append(instrumentExts, strings.TrimPrefix(ext, "."))
	}
	path, err := dialog.
		File().
		Title("Open module or instrument").
		Filter("DefleMask modules (*.dmf)", "dmf").
		Filter("Instruments and banks", instrumentExts...).
		SetStartDir(cwd).
		Load()
	if err != nil {
		// Propagate the error. Caller will check for dialog.ErrCancelled.
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot get absolute path: %w", err)
	}

	// Check for empty path just in case.
	if absPath == "" {
		return nil, dialog.ErrCancelled
	}
	if err := validatePath(absPath); err != nil {
		return nil, fmt.Errorf("dialog selection invalid: %w", err)
	}
	return []string{absPath}, nil
}

// validatePath checks that p is an existing regular file.
func validatePath(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return nil
}

func printWarnings(ws bin.Warnings) {
	for _, w := range ws {
		fmt.Println(yellow("  warning (%s): %s", w.Kind, w))
	}
}

func printModule(path string, s *song.Song) {
	fmt.Println(heading("%s", filepath.Base(path)))
	fmt.Print(s)
}

func printInstruments(path string, res *ins.Result) {
	fmt.Println(heading("%s (%s)", filepath.Base(path), res.Format))
	for i, in := range res.Instruments {
		fmt.Printf("  - #%02X %s [%s]", i, in.Name, in.Type)
		if in.Type.IsFM() {
			fmt.Printf(" %d ops, alg %d, fb %d", in.FM.Ops, in.FM.Alg, in.FM.FB)
		}
		fmt.Println()
	}
}
