package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mbhatt/pageweight/pkg/config"
	"github.com/mbhatt/pageweight/pkg/db"
	"github.com/mbhatt/pageweight/pkg/har"
	"github.com/mbhatt/pageweight/pkg/log"
	"github.com/mbhatt/pageweight/pkg/metrics"
	"github.com/mbhatt/pageweight/pkg/printer"
	"github.com/mbhatt/pageweight/pkg/sink"
	"github.com/mbhatt/pageweight/pkg/size"
	"github.com/skratchdot/open-golang/open"
	"go.uber.org/zap"
)

const minArgs = 2

// jsonStdout renders the JSON report on stdout instead of the console
// report.
const jsonStdout = "-"

func Run(ctx context.Context) error {
	args := os.Args
	if len(args) < minArgs {
		return fmt.Errorf("need a trace file or a command " +
			"('run', 'browse', 'version')")
	}

	switch args[1] {
	case "version":
		return executeVersion()
	case "browse":
		return executeBrowse()
	case "run":
		return executeRun(ctx, args[2:])
	default:
		return executeRun(ctx, args[1:])
	}
}

type runOpts struct {
	traceFile  string
	configFile string
	jsonFile   string
	openReport bool
	noColor    bool
}

func parseRunArgs(args []string) (runOpts, error) {
	opts := runOpts{configFile: config.DefaultFile}
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-config":
			i++
			if i == len(args) {
				return runOpts{}, fmt.Errorf("-config needs a file")
			}
			opts.configFile = args[i]
		case "-json":
			i++
			if i == len(args) {
				return runOpts{}, fmt.Errorf("-json needs a file")
			}
			opts.jsonFile = args[i]
		case "-open":
			opts.openReport = true
		case "-no-color":
			opts.noColor = true
		default:
			if strings.HasPrefix(arg, "-") {
				return runOpts{}, fmt.Errorf("unknown flag '%v'", arg)
			}
			if opts.traceFile != "" {
				return runOpts{}, fmt.Errorf("only one trace file per run")
			}
			opts.traceFile = arg
		}
	}
	if opts.traceFile == "" {
		return runOpts{}, fmt.Errorf("need a trace file")
	}
	if opts.openReport && (opts.jsonFile == "" || opts.jsonFile == jsonStdout) {
		return runOpts{}, fmt.Errorf("-open needs a -json file")
	}
	return opts, nil
}

func executeRun(ctx context.Context, args []string) error {
	opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}

	source, err := har.NewFileSource(opts.traceFile, log.Logger)
	if err != nil {
		return fmt.Errorf("set up trace source: %v", err)
	}
	resolver, err := size.NewResolver(size.ResolverOpts{Logger: log.Logger})
	if err != nil {
		return fmt.Errorf("set up resolver: %v", err)
	}
	meter, err := metrics.NewMeter(metrics.MeterOpts{
		Source:   source,
		Resolver: resolver,
		Config:   cfg.MeterConfig(),
		Logger:   log.Logger,
	})
	if err != nil {
		return fmt.Errorf("set up meter: %v", err)
	}

	if err := meter.Start(); err != nil {
		return err
	}
	if err := meter.Stop(); err != nil {
		return err
	}

	mem := sink.NewMemory()
	sinks := metrics.Fanout{mem}

	var storeSink *sink.Store
	if cfg.Store {
		store, err := db.NewStore(db.StoreOpts{Logger: log.Logger})
		if err != nil {
			return fmt.Errorf("set up DB: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Logger.Sugar().Errorf("failed to close store: %v", err)
			}
		}()
		storeSink, err = sink.NewStore(store, opts.traceFile)
		if err != nil {
			return err
		}
		sinks = append(sinks, storeSink)
	}

	var prom *sink.Prometheus
	if cfg.PrometheusListen != "" {
		prom = sink.NewPrometheus()
		sinks = append(sinks, prom)
	}

	if err := meter.AddResults(sinks); err != nil {
		return fmt.Errorf("aggregate metrics: %v", err)
	}

	mode := printer.ModeColorConsole
	if opts.noColor {
		mode = printer.ModeNoColor
	}
	p := printer.NewPrinter(printer.Opts{Writer: os.Stdout, Mode: printer.Mode(mode)})
	if err := emitReport(p, opts, mem.Metrics()); err != nil {
		return fmt.Errorf("print report: %v", err)
	}

	if storeSink != nil {
		runID, err := storeSink.Flush(ctx)
		if err != nil {
			return err
		}
		log.Logger.Debug("saved run", zap.Int64("run-id", runID))
	}

	if opts.openReport {
		if err := open.Run(opts.jsonFile); err != nil {
			return fmt.Errorf("open report: %v", err)
		}
	}

	if prom != nil {
		log.Logger.Sugar().Infof("serving metrics on %s/metrics",
			cfg.PrometheusListen)
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		if err := http.ListenAndServe(cfg.PrometheusListen, mux); err != nil {
			return fmt.Errorf("serve metrics: %v", err)
		}
	}
	return nil
}

// emitReport renders the run's metrics: the colored JSON document alone
// when the report goes to stdout, otherwise the console report plus an
// optional JSON report file.
func emitReport(p printer.Printer, opts runOpts, metrics []sink.Metric) error {
	if opts.jsonFile == jsonStdout {
		return p.PrintJSON(metrics)
	}
	if err := p.Print(opts.traceFile, metrics); err != nil {
		return err
	}
	if opts.jsonFile != "" {
		return writeJSONReport(opts.jsonFile, metrics)
	}
	return nil
}

func writeJSONReport(filename string, metrics []sink.Metric) error {
	const fileMode = 0o0600
	js, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %v", err)
	}
	if err := os.WriteFile(filename, js, fileMode); err != nil {
		return fmt.Errorf("write report: %v", err)
	}
	return nil
}
