package decode

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeSYNCapture(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	header := make([]byte, pcapHeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], pcapMagicLE)
	binary.LittleEndian.PutUint16(header[4:6], 2)
	binary.LittleEndian.PutUint16(header[6:8], 4)
	binary.LittleEndian.PutUint32(header[16:20], 65535)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	if _, err := f.Write(header); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eth := make([]byte, ethHeaderLen)
	binary.BigEndian.PutUint16(eth[12:14], ethTypeIPv4)

	ip := make([]byte, minIPv4Header)
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], minIPv4Header+minTCPHeader)
	ip[9] = ipv4ProtoTCP
	copy(ip[12:16], []byte{10, 0, 0, 9})
	copy(ip[16:20], []byte{10, 0, 0, 1})

	tcp := make([]byte, minTCPHeader)
	binary.BigEndian.PutUint16(tcp[0:2], 51000)
	binary.BigEndian.PutUint16(tcp[2:4], 80)
	tcp[13] = 2 // SYN

	frame := append(append(eth, ip...), tcp...)

	rec := make([]byte, pcapRecordLen)
	binary.LittleEndian.PutUint32(rec[0:4], 1000)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(len(frame)))
	binary.LittleEndian.PutUint32(rec[12:16], uint32(len(frame)))
	if _, err := f.Write(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Write(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPCAPRoundTripsSYNPacket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syn.pcap")
	writeSYNCapture(t, path)

	dec, err := OpenPCAP(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer dec.Close()

	pkt, ok, err := dec.Next()
	if err != nil || !ok {
		t.Fatalf("expected a decoded packet, got ok=%v err=%v", ok, err)
	}
	if pkt.Timestamp != 1000 {
		t.Fatalf("expected timestamp 1000, got %d", pkt.Timestamp)
	}
	dst, _ := pkt.Tuple.Get("dst_ip")
	if dst.AsText() != "10.0.0.1" {
		t.Fatalf("unexpected dst_ip: %s", dst.AsText())
	}
	flags, _ := pkt.Tuple.Get("tcp_flags")
	if v, _ := flags.AsU16(); v != 2 {
		t.Fatalf("expected SYN flags=2, got %d", v)
	}

	_, ok, err = dec.Next()
	if ok || err != nil {
		t.Fatalf("expected end of capture, got ok=%v err=%v", ok, err)
	}
}
