// Package epoch implements the epoch driver (spec §4.5, component C7):
// the packet loop that feeds the operator interpreter, detects epoch
// boundaries by packet timestamp, and drives the per-epoch
// summarize/reset cycle.
package epoch

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shayanshabanzadeh/netquery/src/decode"
	"github.com/shayanshabanzadeh/netquery/src/interpreter"
	"github.com/shayanshabanzadeh/netquery/src/metrics"
	"github.com/shayanshabanzadeh/netquery/src/output"
	"github.com/shayanshabanzadeh/netquery/src/server"
)

// state names the per-query state machine of spec §4.5: Idle ->
// Accumulating -> Closing -> Idle, driven strictly by packet
// timestamps. The core is single-threaded cooperative (spec §5), so
// this is bookkeeping rather than a concurrency guard.
type state int

const (
	stateIdle state = iota
	stateAccumulating
	stateClosing
)

// Driver owns the epoch window and wires the decoder, interpreter, and
// output streams together.
type Driver struct {
	interp    *interpreter.Interpreter
	results   *output.ResultsWriter
	memory    *output.MemoryWriter
	mem       *memSampler
	epochSize int64
	log       *logrus.Entry
	stats     *metrics.EngineMetrics

	state         state
	epochStartSet bool
	epochStart    int64
	lastTimestamp int64
	epochPackets  uint64
	totalPackets  uint64
	epochIndex    uint64
}

// Config groups Driver's construction parameters.
type Config struct {
	Interpreter *interpreter.Interpreter
	Results     *output.ResultsWriter
	Memory      *output.MemoryWriter
	EpochSize   int64
	Log         *logrus.Entry
	Stats       *metrics.EngineMetrics
}

// NewDriver builds a Driver from cfg.
func NewDriver(cfg Config) *Driver {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Driver{
		interp:    cfg.Interpreter,
		results:   cfg.Results,
		memory:    cfg.Memory,
		mem:       newMemSampler(),
		epochSize: cfg.EpochSize,
		log:       log,
		stats:     cfg.Stats,
		state:     stateIdle,
	}
}

// Run drains dec to completion, feeding every decoded packet through the
// interpreter and closing epochs as their window elapses. Every error the
// decoder reports is logged, counted as a dropped packet and skipped; Run
// does not abort on decoder errors and returns nil once the decoder
// reports end of input. An unreadable capture (ErrUnreadableCapture) is
// detected when the decoder is opened, before Run.
//
// A packet whose timestamp crosses the epoch boundary closes the prior
// epoch first and then starts the new one as that packet's epoch (see
// the epoch-boundary ownership note in DESIGN.md), rather than being
// folded into the epoch it closes.
func (d *Driver) Run(dec decode.Decoder) error {
	for {
		pkt, ok, err := dec.Next()
		if err != nil {
			d.log.WithError(err).Warn("dropping unreadable packet")
			d.countDropped()
			continue
		}
		if !ok {
			break
		}

		if d.epochStartSet && pkt.Timestamp-d.epochStart >= d.epochSize {
			d.closeEpoch(pkt.Timestamp)
		}
		if !d.epochStartSet {
			d.epochStart = pkt.Timestamp
			d.epochStartSet = true
			d.state = stateAccumulating
		}

		d.interp.Execute(pkt.Tuple)
		d.epochPackets++
		d.totalPackets++
		d.lastTimestamp = pkt.Timestamp
		if d.stats != nil {
			d.stats.PacketsProcessed.Inc()
		}
	}

	if d.epochPackets > 0 {
		d.closeEpoch(d.lastTimestamp)
	}
	return nil
}

func (d *Driver) closeEpoch(ts int64) {
	d.state = stateClosing
	start := time.Now()

	d.interp.CloseEpoch()
	results := d.interp.Results()
	d.results.WriteEpoch(ts, d.epochPackets, d.totalPackets, results)
	d.memory.WriteEpoch(d.epochIndex, ts, d.mem.Sample())

	if d.stats != nil {
		d.stats.EpochsClosed.Inc()
		d.stats.EpochCloseTime.AddValue(float64(time.Since(start).Milliseconds()))
		d.stats.PacketsDropped.Add(d.interp.Dropped())
	}

	d.interp.Reset()
	d.epochPackets = 0
	d.epochStart = ts
	d.epochIndex++
	d.state = stateAccumulating
}

func (d *Driver) countDropped() {
	if d.stats != nil {
		d.stats.PacketsDropped.Inc()
	}
}

// Snapshot implements server.StatsSource for the debug HTTP surface.
func (d *Driver) Snapshot() server.Snapshot {
	return server.Snapshot{
		EpochIndex:     d.epochIndex,
		TotalPackets:   d.totalPackets,
		PacketsDropped: d.interp.Dropped(),
		LastEpochFlows: len(d.interp.Results()),
	}
}

// ErrUnreadableCapture wraps a Fatal decoder-open failure (spec §7): the
// capture source could not be opened at all, distinct from a per-packet
// Runtime error.
var ErrUnreadableCapture = errors.New("epoch: capture source unreadable")
