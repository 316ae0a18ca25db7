package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MacAttak/pan-scanner/pkg/archive"
	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/config"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/hunter"
	"github.com/MacAttak/pan-scanner/pkg/logging"
	"github.com/MacAttak/pan-scanner/pkg/processing"
	"github.com/MacAttak/pan-scanner/pkg/queue"
	"github.com/MacAttak/pan-scanner/pkg/report"
	"github.com/MacAttak/pan-scanner/pkg/scan"
	"github.com/MacAttak/pan-scanner/pkg/validation"
)

type scanOptions struct {
	searchDir   string
	filePath    string
	excludeDirs string
	reportDir   string
	jsonDir     string
	unmask      bool
	configFile  string
	excludePAN  string
	quiet       bool
	verbose     bool
}

// runScan wires the engine together and drives one scan to completion.
func runScan(ctx context.Context, opts scanOptions) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.Info().Msg("starting")

	if cfg.Report.Unmask {
		logger.Warn().Msg("unmasking is not supported; matches are stored masked")
	}

	patterns := detection.NewCardPatterns()
	excluded := validation.NewExclusionList(cfg.Scanner.ExcludedPANs)
	finder := detection.NewFinder(patterns, excluded)
	classifier := classify.NewClassifier()

	jobQueue := queue.NewJobQueue()
	dispatcher := processing.NewDispatcher(jobQueue, classifier, cfg.Scanner.SizeLimit, logger)

	zipExtractor := &archive.ZipExtractor{}
	dispatcher.RegisterExtractor(classify.KindZip, zipExtractor)
	dispatcher.RegisterExtractor(classify.KindMsWord, zipExtractor)
	dispatcher.RegisterExtractor(classify.KindMsExcel, zipExtractor)
	dispatcher.RegisterExtractor(classify.KindMsPowerpoint, zipExtractor)
	dispatcher.RegisterExtractor(classify.KindTar, &archive.TarExtractor{})
	dispatcher.RegisterExtractor(classify.KindGzip, &archive.GzipExtractor{SizeLimit: cfg.Scanner.SizeLimit})
	dispatcher.RegisterExtractor(classify.KindXz, &archive.XzExtractor{SizeLimit: cfg.Scanner.SizeLimit})

	textScanner := scan.NewTextScanner(finder)
	dispatcher.RegisterScanner(classify.KindPlaintext, textScanner)
	dispatcher.RegisterScanner(classify.KindRtf, textScanner)
	dispatcher.RegisterScanner(classify.KindPdf, scan.NewPdfScanner(finder))
	dispatcher.RegisterScanner(classify.KindEml, scan.NewEmlScanner(finder, dispatcher))
	dispatcher.RegisterScanner(classify.KindMbox, scan.NewMboxScanner(finder, dispatcher))
	dispatcher.RegisterScanner(classify.KindMsMsg, scan.NewMsgScanner(finder, dispatcher))
	dispatcher.RegisterScanner(classify.KindMsPst, scan.NewPstScanner(finder, dispatcher))

	// Interruption cancels between jobs and still exits cleanly.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	h := hunter.New(cfg, jobQueue, dispatcher, logger)
	results, err := h.Hunt(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		logger.Warn().Msg("cancelled by user")
		if !opts.quiet {
			fmt.Println("Cancelled by user.")
		}
		return nil
	}

	rep := report.New(results)
	textPath := filepath.Join(cfg.Report.Directory, report.DefaultTextFilename(results.Summary.Start))
	if err := rep.WriteText(textPath); err != nil {
		return err
	}
	if cfg.Report.JSONDirectory != "" {
		jsonPath := filepath.Join(cfg.Report.JSONDirectory, report.DefaultJSONFilename(results.Summary.Start))
		if err := rep.WriteJSON(jsonPath); err != nil {
			return err
		}
	}

	if !opts.quiet {
		fmt.Printf("Searched %d files. Found %d possible PANs.\n",
			results.Summary.TotalFiles, results.Summary.PANsFound)
		fmt.Printf("Report written to %s\n", textPath)
	}
	logger.Info().Msg("exiting")
	return nil
}

// buildConfig resolves flags and the optional config file. A config file
// wins over defaults; explicit flags win over the file, matching the
// original tool's precedence.
func buildConfig(opts scanOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.configFile == "":
		cfg = config.DefaultConfig()
	case strings.EqualFold(filepath.Ext(opts.configFile), ".ini"):
		cfg, err = config.LoadINI(opts.configFile)
	default:
		cfg, err = config.LoadConfig(opts.configFile)
	}
	if err != nil {
		return nil, err
	}

	if opts.searchDir != "" {
		if abs, aerr := filepath.Abs(opts.searchDir); aerr == nil {
			cfg.Scanner.SearchDir = abs
		} else {
			cfg.Scanner.SearchDir = opts.searchDir
		}
	}
	if opts.filePath != "" {
		cfg.Scanner.FilePath = opts.filePath
	}
	if opts.excludeDirs != "" {
		cfg.Scanner.ExcludedDirs = strings.Split(opts.excludeDirs, ",")
	}
	if opts.excludePAN != "" {
		cfg.Scanner.ExcludedPANs = append(cfg.Scanner.ExcludedPANs, strings.Split(opts.excludePAN, ",")...)
	}
	if opts.reportDir != "" {
		cfg.Report.Directory = opts.reportDir
	}
	if opts.jsonDir != "" {
		cfg.Report.JSONDirectory = opts.jsonDir
	}
	if opts.unmask {
		cfg.Report.Unmask = true
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if opts.quiet {
		cfg.Logging.Level = "error"
	}

	// Re-apply so flag-supplied exclusions are normalized too.
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}
