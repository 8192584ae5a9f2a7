// Package output implements the two external text streams of spec §6:
// per-epoch Results rows and per-epoch Memory accounting rows. Writes
// are retried briefly with the teacher's jpillora/backoff idiom before
// being logged and skipped — an I/O error here is never fatal (spec §7).
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

const maxWriteAttempts = 3

// ResultsWriter emits the Results stream: one block per epoch close,
// epoch metadata followed by one row per retained result-map entry.
type ResultsWriter struct {
	w     io.Writer
	field string
	log   *logrus.Entry
}

// NewResultsWriter builds a ResultsWriter over w, labeling each row with
// the measured field name plan.MeasuredField() reports.
func NewResultsWriter(w io.Writer, field string, log *logrus.Entry) *ResultsWriter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ResultsWriter{w: w, field: field, log: log}
}

// WriteEpoch writes one epoch's block. An empty result map still emits a
// placeholder row (spec §6).
func (r *ResultsWriter) WriteEpoch(epochEnd int64, epochPackets, totalPackets uint64, results map[string]tuple.Tuple) {
	var buf []byte
	buf = append(buf, fmt.Sprintf("epoch_end=%d epoch_packets=%d total_packets=%d\n", epochEnd, epochPackets, totalPackets)...)

	if len(results) == 0 {
		buf = append(buf, "(no flows)\n"...)
	} else {
		for key, t := range results {
			var val uint64
			if r.field != "" {
				if v, ok := t.Get(r.field); ok {
					val, _ = v.AsU64()
				}
			}
			buf = append(buf, fmt.Sprintf("%s,%d\n", key, val)...)
		}
	}

	retryWrite(r.w, buf, r.log)
}

func retryWrite(w io.Writer, data []byte, log *logrus.Entry) {
	b := &backoff.Backoff{Min: 10 * time.Millisecond, Max: 200 * time.Millisecond, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if _, err := w.Write(data); err == nil {
			return
		} else {
			lastErr = err
		}
		time.Sleep(b.Duration())
	}
	log.WithError(lastErr).Error("giving up writing output stream after retries")
}
