package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

const (
	pcapMagicLE   = 0xa1b2c3d4
	pcapMagicSwap = 0xd4c3b2a1
	pcapHeaderLen = 24
	pcapRecordLen = 16

	ethHeaderLen  = 14
	ethTypeIPv4   = 0x0800
	ipv4ProtoTCP  = 6
	ipv4ProtoUDP  = 17
	minIPv4Header = 20
	minTCPHeader  = 20
	minUDPHeader  = 8
	dnsPort       = 53
)

// pcapFile is a minimal libpcap (classic, not pcapng) file reader
// decoding Ethernet/IPv4/TCP/UDP headers into the canonical tuple fields
// of spec §3. Grounded in shape on original_source's pcap_processor.rs
// (which wraps the `pcap`/`pnet` crates, out of scope for a
// dependency-free reimplementation since no Go pcap library appears in
// the retrieved corpus; see DESIGN.md).
type pcapFile struct {
	f         *os.File
	byteOrder binary.ByteOrder
}

// OpenPCAP opens path as a classic libpcap capture.
func OpenPCAP(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode: open %s: %w", path, err)
	}

	var hdr [pcapHeaderLen]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("decode: read pcap header: %w", err)
	}

	var order binary.ByteOrder
	magic := binary.LittleEndian.Uint32(hdr[0:4])
	switch magic {
	case pcapMagicLE:
		order = binary.LittleEndian
	case pcapMagicSwap:
		order = binary.BigEndian
	default:
		magic = binary.BigEndian.Uint32(hdr[0:4])
		if magic == pcapMagicLE {
			order = binary.BigEndian
		} else {
			f.Close()
			return nil, fmt.Errorf("decode: %s is not a libpcap capture (bad magic)", path)
		}
	}

	return &pcapFile{f: f, byteOrder: order}, nil
}

func (p *pcapFile) Close() error { return p.f.Close() }

// Next reads and decodes one packet record. A truncated or unparseable
// packet is a Runtime error (spec §7): the caller drops it and keeps
// reading rather than aborting the capture.
func (p *pcapFile) Next() (Packet, bool, error) {
	var rec [pcapRecordLen]byte
	if _, err := io.ReadFull(p.f, rec[:]); err != nil {
		if err == io.EOF {
			return Packet{}, false, nil
		}
		return Packet{}, false, fmt.Errorf("decode: read record header: %w", err)
	}

	tsSec := p.byteOrder.Uint32(rec[0:4])
	capLen := p.byteOrder.Uint32(rec[8:12])

	buf := make([]byte, capLen)
	if _, err := io.ReadFull(p.f, buf); err != nil {
		return Packet{}, false, fmt.Errorf("decode: truncated packet record: %w", err)
	}

	t, err := decodeEthernet(buf)
	if err != nil {
		return Packet{Timestamp: int64(tsSec)}, true, fmt.Errorf("decode: %w", err)
	}
	return Packet{Tuple: t, Timestamp: int64(tsSec)}, true, nil
}

func decodeEthernet(b []byte) (tuple.Tuple, error) {
	if len(b) < ethHeaderLen {
		return tuple.Tuple{}, fmt.Errorf("ethernet frame too short (%d bytes)", len(b))
	}
	etherType := binary.BigEndian.Uint16(b[12:14])
	if etherType != ethTypeIPv4 {
		return tuple.Tuple{}, fmt.Errorf("unsupported ethertype 0x%04x", etherType)
	}
	return decodeIPv4(b[ethHeaderLen:])
}

func decodeIPv4(b []byte) (tuple.Tuple, error) {
	if len(b) < minIPv4Header {
		return tuple.Tuple{}, fmt.Errorf("ipv4 header too short (%d bytes)", len(b))
	}
	ihl := int(b[0]&0x0f) * 4
	if ihl < minIPv4Header || len(b) < ihl {
		return tuple.Tuple{}, fmt.Errorf("invalid ipv4 header length %d", ihl)
	}
	totalLen := binary.BigEndian.Uint16(b[2:4])
	proto := b[9]
	srcIP := fmt.Sprintf("%d.%d.%d.%d", b[12], b[13], b[14], b[15])
	dstIP := fmt.Sprintf("%d.%d.%d.%d", b[16], b[17], b[18], b[19])

	t := tuple.New().
		Set("src_ip", tuple.Text(srcIP)).
		Set("dst_ip", tuple.Text(dstIP)).
		Set("total_len", tuple.U16(totalLen)).
		Set("protocol", tuple.U8(proto)).
		Set("dns_ns_type", tuple.OptU16None())

	payload := b[ihl:]
	switch proto {
	case ipv4ProtoTCP:
		return decodeTCP(t, payload)
	case ipv4ProtoUDP:
		return decodeUDP(t, payload)
	default:
		return t.Set("src_port", tuple.U16(0)).Set("dst_port", tuple.U16(0)).Set("tcp_flags", tuple.U8(0)), nil
	}
}

func decodeTCP(t tuple.Tuple, b []byte) (tuple.Tuple, error) {
	if len(b) < minTCPHeader {
		return tuple.Tuple{}, fmt.Errorf("tcp header too short (%d bytes)", len(b))
	}
	srcPort := binary.BigEndian.Uint16(b[0:2])
	dstPort := binary.BigEndian.Uint16(b[2:4])
	flags := b[13]
	return t.
		Set("src_port", tuple.U16(srcPort)).
		Set("dst_port", tuple.U16(dstPort)).
		Set("tcp_flags", tuple.U8(flags)), nil
}

func decodeUDP(t tuple.Tuple, b []byte) (tuple.Tuple, error) {
	if len(b) < minUDPHeader {
		return tuple.Tuple{}, fmt.Errorf("udp header too short (%d bytes)", len(b))
	}
	srcPort := binary.BigEndian.Uint16(b[0:2])
	dstPort := binary.BigEndian.Uint16(b[2:4])
	t = t.Set("src_port", tuple.U16(srcPort)).Set("dst_port", tuple.U16(dstPort)).Set("tcp_flags", tuple.U8(0))
	if (srcPort == dnsPort || dstPort == dnsPort) && len(b) >= minUDPHeader+12+4 {
		qdStart := minUDPHeader + 12
		for qdStart < len(b) && b[qdStart] != 0 {
			qdStart++
		}
		qdStart++
		if qdStart+2 <= len(b) {
			qtype := binary.BigEndian.Uint16(b[qdStart : qdStart+2])
			t = t.Set("dns_ns_type", tuple.OptU16Some(qtype))
		}
	}
	return t, nil
}
