//go:build integration

// Package integration_test drives the engine end to end: a FakeDecoder
// sequence through epoch.Driver, real output writers, and the canonical
// queries from queryplan.ByID, reproducing spec §8's scenarios. Grounded
// on the teacher's test/integration/integration_test.go build-tag and
// require/assert style.
package integration_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shayanshabanzadeh/netquery/src/config"
	"github.com/shayanshabanzadeh/netquery/src/decode"
	"github.com/shayanshabanzadeh/netquery/src/epoch"
	"github.com/shayanshabanzadeh/netquery/src/interpreter"
	"github.com/shayanshabanzadeh/netquery/src/output"
	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

func pkt(ts int64, fields map[string]tuple.Value) decode.Packet {
	t := tuple.New()
	for k, v := range fields {
		t = t.Set(k, v)
	}
	return decode.Packet{Tuple: t, Timestamp: ts}
}

func runQuery(t *testing.T, queryID int, threshold uint64, epochSize int64, packets []decode.Packet) string {
	t.Helper()
	settings, err := config.Load()
	require.NoError(t, err)

	plan, err := queryplan.ByID(queryID, settings)
	require.NoError(t, err)
	plan.WithThreshold(threshold)

	it, err := interpreter.New(plan, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	var mem bytes.Buffer
	drv := epoch.NewDriver(epoch.Config{
		Interpreter: it,
		Results:     output.NewResultsWriter(&out, plan.MeasuredField(), nil),
		Memory:      output.NewMemoryWriter(&mem, nil),
		EpochSize:   epochSize,
	})

	require.NoError(t, drv.Run(decode.NewFakeDecoder(packets)))
	return out.String()
}

// TestSuperSpreaderScenario reproduces S2: two source IPs probing
// several destinations each; distinct (dst,src) pairs deduplicated
// before the per-source count.
func TestSuperSpreaderScenario(t *testing.T) {
	var packets []decode.Packet
	for _, d := range []string{"D1", "D2", "D3", "D4", "D5"} {
		packets = append(packets, pkt(0, map[string]tuple.Value{
			"src_ip": tuple.Text("X"), "dst_ip": tuple.Text(d),
		}))
	}
	// two repeats of src=X,dst=D1 must not inflate the distinct count.
	packets = append(packets,
		pkt(0, map[string]tuple.Value{"src_ip": tuple.Text("X"), "dst_ip": tuple.Text("D1")}),
		pkt(0, map[string]tuple.Value{"src_ip": tuple.Text("X"), "dst_ip": tuple.Text("D1")}),
	)
	for _, d := range []string{"D1", "D2", "D3", "D4"} {
		packets = append(packets, pkt(0, map[string]tuple.Value{
			"src_ip": tuple.Text("Y"), "dst_ip": tuple.Text(d),
		}))
	}

	out := runQuery(t, 3, 1, 10, packets)
	assert.Contains(t, out, "X,5")
	assert.Contains(t, out, "Y,4")
}

// TestPortScanScenario reproduces S3: one source probing six distinct
// TCP ports clears threshold=4; accompanying UDP traffic is filtered
// out before the distinct stage.
func TestPortScanScenario(t *testing.T) {
	var packets []decode.Packet
	for i := 0; i < 6; i++ {
		packets = append(packets, pkt(0, map[string]tuple.Value{
			"src_ip": tuple.Text("Z"), "protocol": tuple.Text("6"),
			"dst_port": tuple.U16(uint16(2000 + i)),
		}))
	}
	for i := 0; i < 3; i++ {
		packets = append(packets, pkt(0, map[string]tuple.Value{
			"src_ip": tuple.Text("Z"), "protocol": tuple.Text("17"),
			"dst_port": tuple.U16(uint16(3000 + i)),
		}))
	}

	out := runQuery(t, 4, 4, 10, packets)
	assert.Contains(t, out, "Z,6")
}
