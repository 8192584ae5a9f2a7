package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemorySample is one row of the Memory stream (spec §6): process and
// system memory accounting at an epoch boundary.
type MemorySample struct {
	ProcessUsedKB  uint64
	TotalKB        uint64
	AvailableKB    uint64
}

// MemoryWriter emits the Memory stream: a fixed CSV header followed by
// one row per epoch.
type MemoryWriter struct {
	w         io.Writer
	log       *logrus.Entry
	once      sync.Once
}

// NewMemoryWriter builds a MemoryWriter over w.
func NewMemoryWriter(w io.Writer, log *logrus.Entry) *MemoryWriter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &MemoryWriter{w: w, log: log}
}

const memoryHeader = "Epoch,Timestamp,ProcessMemoryUsedKB,TotalMemoryKB,AvailableMemoryKB\n"

// WriteEpoch writes one row for epochIndex at timestamp ts, writing the
// CSV header first if this is the first call.
func (m *MemoryWriter) WriteEpoch(epochIndex uint64, ts int64, sample MemorySample) {
	m.once.Do(func() {
		retryWrite(m.w, []byte(memoryHeader), m.log)
	})
	row := fmt.Sprintf("%d,%d,%d,%d,%d\n", epochIndex, ts, sample.ProcessUsedKB, sample.TotalKB, sample.AvailableKB)
	retryWrite(m.w, []byte(row), m.log)
}
