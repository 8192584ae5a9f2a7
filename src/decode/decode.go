// Package decode is the external packet decoder (spec §6 "Input",
// out-of-scope collaborator named but not specified in detail): it turns
// a capture file into the canonical packet tuples the query plans
// operate on. No pcap-parsing library appears anywhere in the retrieved
// corpus, so the libpcap file-format reader and the Ethernet/IPv4/TCP/UDP
// header decode below are built on encoding/binary alone (see DESIGN.md).
package decode

import (
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// Packet is one decoded record: its canonical tuple plus the
// monotonically non-decreasing integer-seconds timestamp the epoch
// driver keys windows on (spec §4.5).
type Packet struct {
	Tuple     tuple.Tuple
	Timestamp int64
}

// Decoder yields decoded packets in capture order. Next returns
// (Packet{}, false, nil) at end of input and a non-nil error only for a
// Fatal or Runtime failure (spec §7); a Runtime failure (partial tuple)
// is reported so the driver can count and skip it without aborting.
type Decoder interface {
	Next() (Packet, bool, error)
	Close() error
}
