// Command netquery runs the streaming query engine against a pcap
// capture: decode -> interpret -> epoch-close -> write, until the
// capture is exhausted (spec §6 CLI shape, component C7/C8 wiring).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shayanshabanzadeh/netquery/src/config"
	"github.com/shayanshabanzadeh/netquery/src/decode"
	"github.com/shayanshabanzadeh/netquery/src/epoch"
	"github.com/shayanshabanzadeh/netquery/src/interpreter"
	"github.com/shayanshabanzadeh/netquery/src/metrics"
	"github.com/shayanshabanzadeh/netquery/src/output"
	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/server"

	stats "github.com/lyft/gostats"
)

// exit codes per spec §6: 0 normal, non-zero on any input error.
const (
	exitOK = iota
	exitUsage
	exitUnreadableCapture
	exitInvalidArg
	exitUnknownQuery
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := logrus.WithField("run_id", uuid.New().String())

	if len(args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: netquery <pcap-file> <epoch-seconds> <threshold> <query-id>")
		return exitUsage
	}
	pcapPath := args[0]

	epochSeconds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		log.WithError(err).Error("invalid epoch-seconds")
		return exitInvalidArg
	}
	threshold, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		log.WithError(err).Error("invalid threshold")
		return exitInvalidArg
	}
	queryID, err := strconv.Atoi(args[3])
	if err != nil {
		log.WithError(err).Error("invalid query-id")
		return exitInvalidArg
	}

	settings, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return exitInvalidArg
	}

	plan, err := queryplan.ByID(queryID, settings)
	if err != nil {
		log.WithError(err).Error("unknown query id")
		return exitUnknownQuery
	}
	plan.WithThreshold(threshold)

	dec, err := decode.OpenPCAP(pcapPath)
	if err != nil {
		log.WithError(fmt.Errorf("%w: %v", epoch.ErrUnreadableCapture, err)).Error("unreadable capture")
		return exitUnreadableCapture
	}
	defer dec.Close()

	it, err := interpreter.New(plan, log)
	if err != nil {
		log.WithError(err).Error("failed to build interpreter")
		return exitInvalidArg
	}

	resultsWriter := output.NewResultsWriter(os.Stdout, plan.MeasuredField(), log)
	memoryWriter := output.NewMemoryWriter(os.Stderr, log)

	store := stats.NewDefaultStore()
	reporter := metrics.NewStatsReporter(store.Scope("netquery"))
	engineMetrics := metrics.NewEngineMetrics(reporter)

	drv := epoch.NewDriver(epoch.Config{
		Interpreter: it,
		Results:     resultsWriter,
		Memory:      memoryWriter,
		EpochSize:   epochSeconds,
		Log:         log,
		Stats:       engineMetrics,
	})

	if settings.DebugPort != 0 {
		dbg := server.New(fmt.Sprintf(":%d", settings.DebugPort), log)
		dbg.SetSource(drv)
		dbg.Start()
		defer dbg.Stop()
	}

	if err := drv.Run(dec); err != nil {
		log.WithError(err).Error("engine run failed")
		return exitInvalidArg
	}
	return exitOK
}
