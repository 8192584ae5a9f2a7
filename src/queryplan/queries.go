package queryplan

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/config"
)

// Canonical packet field names (spec §3).
const (
	FieldSrcIP     = "src_ip"
	FieldDstIP     = "dst_ip"
	FieldSrcPort   = "src_port"
	FieldDstPort   = "dst_port"
	FieldTotalLen  = "total_len"
	FieldTCPFlags  = "tcp_flags"
	FieldProtocol  = "protocol"
	FieldDNSNSType = "dns_ns_type"
)

const (
	tcpProtocol  = "6"
	udpProtocol  = "17"
	tcpFlagSYN   = "2"
	tcpFlagFIN   = "1"
	tcpFlagSYNACK = "17"
)

// ByID builds one of the eight canonical queries, ported from
// original_source's queries.rs. id is 1-8; an unrecognized id is a
// Configuration error (spec §6 "unknown query id").
func ByID(id int, settings config.Settings) (*QueryPlan, error) {
	switch id {
	case 1:
		return query1TCPNewConnection(settings)
	case 2:
		return query2SSHBrute(settings)
	case 3:
		return query3SuperSpreader(settings)
	case 4:
		return query4PortScan(settings)
	case 5:
		return query5HeavyHitterBytes(settings)
	case 6:
		return query6SYNFlood(settings)
	case 7:
		return query7CompletedFlow(settings)
	case 8:
		return query8Slowloris(settings)
	default:
		return nil, fmt.Errorf("queryplan: unknown query id %d", id)
	}
}

// query1TCPNewConnection counts SYN packets per destination (S1).
func query1TCPNewConnection(s config.Settings) (*QueryPlan, error) {
	m, err := NewMap("(dst_ip, count = 1)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		NewFilter(FieldTest{Field: FieldTCPFlags, Literal: tcpFlagSYN}),
		m,
		NewReduce([]string{FieldDstIP}, s.ReduceKind(), "count"),
		NewFilterResult(3, "count"),
	}}, nil
}

// query2SSHBrute counts distinct sources per (dst_ip,total_len) pair,
// suppressing repeated (dst_ip,src_ip,total_len) triples before reducing.
func query2SSHBrute(s config.Settings) (*QueryPlan, error) {
	m1, err := NewMap("(dst_ip, src_ip, total_len)")
	if err != nil {
		return nil, err
	}
	m2, err := NewMap("(dst_ip, total_len, count = 1)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		m1,
		NewDistinct([]string{FieldDstIP, FieldSrcIP, FieldTotalLen}, s.DistinctKind()),
		m2,
		NewReduce([]string{FieldDstIP, FieldTotalLen}, s.ReduceKind(), "count"),
		NewFilterResult(40, "count"),
	}}, nil
}

// query3SuperSpreader counts distinct destinations contacted per source
// (S2).
func query3SuperSpreader(s config.Settings) (*QueryPlan, error) {
	m1, err := NewMap("(dst_ip, src_ip)")
	if err != nil {
		return nil, err
	}
	m2, err := NewMap("(src_ip, count = 1)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		m1,
		NewDistinct([]string{FieldDstIP, FieldSrcIP}, s.DistinctKind()),
		m2,
		NewReduce([]string{FieldSrcIP}, s.ReduceKind(), "count"),
		NewFilterResult(40, "count"),
	}}, nil
}

// query4PortScan counts distinct destination ports probed per source
// over TCP (S3).
func query4PortScan(s config.Settings) (*QueryPlan, error) {
	m1, err := NewMap("(src_ip, dst_port)")
	if err != nil {
		return nil, err
	}
	m2, err := NewMap("(src_ip, dst_port, count = 1)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		NewFilter(FieldTest{Field: FieldProtocol, Literal: tcpProtocol}),
		m1,
		NewDistinct([]string{FieldSrcIP, FieldDstPort}, s.DistinctKind()),
		m2,
		NewReduce([]string{FieldSrcIP}, s.ReduceKind(), "count"),
		NewFilterResult(40, "count"),
	}}, nil
}

// query5HeavyHitterBytes sums total_len per (dst_ip,src_ip) flow (S4).
func query5HeavyHitterBytes(s config.Settings) (*QueryPlan, error) {
	m, err := NewMap("(dst_ip, src_ip, total_len)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		m,
		NewReduce([]string{FieldDstIP, FieldSrcIP}, s.ReduceKind(), "total_len"),
		NewFilterResult(1, "total_len"),
	}}, nil
}

// query6SYNFlood joins a SYN-count sub-query against a SYN-ACK-count
// sub-query, keyed on destination/source address, and flags addresses
// whose SYN count plus SYN-ACK count reaches the threshold (S5).
func query6SYNFlood(s config.Settings) (*QueryPlan, error) {
	nSyn, err := synCountPlan(s, tcpFlagSYN, "left_count")
	if err != nil {
		return nil, err
	}
	nSynAck, err := synAckCountPlan(s, tcpFlagSYNACK, "right_count")
	if err != nil {
		return nil, err
	}
	join, err := NewJoin(nSyn, nSynAck, []string{FieldDstIP}, []string{FieldSrcIP})
	if err != nil {
		return nil, err
	}
	mapJoin, err := NewMapJoin("(dst_ip, count = left_count + right_count)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		join,
		mapJoin,
		NewFilterJoin(40, "count"),
	}}, nil
}

// query7CompletedFlow joins SYN counts against FIN counts per
// destination and reports destinations with more SYNs than FINs
// (incomplete flows), supplementing the distillation with the original
// "Completed Flow" query (original_source's queries.rs query_7).
func query7CompletedFlow(s config.Settings) (*QueryPlan, error) {
	nSyn, err := synCountPlan(s, tcpFlagSYN, "left_count")
	if err != nil {
		return nil, err
	}
	nFin, err := synAckCountPlan(s, tcpFlagFIN, "right_count")
	if err != nil {
		return nil, err
	}
	join, err := NewJoin(nSyn, nFin, []string{FieldDstIP}, []string{FieldSrcIP})
	if err != nil {
		return nil, err
	}
	diff, err := NewMapJoin("(dst_ip, src_ip, diff = left_count - right_count)")
	if err != nil {
		return nil, err
	}
	dstOnly, err := NewMapJoin("(dst_ip)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		join,
		diff,
		NewFilterJoin(1, "diff"),
		dstOnly,
	}}, nil
}

// query8Slowloris joins a per-destination byte-volume sub-query against
// a per-destination distinct-connection-count sub-query, flagging
// destinations with many low-rate connections (original_source's
// queries.rs query_8).
func query8Slowloris(s config.Settings) (*QueryPlan, error) {
	nConns, err := connCountPlan(s)
	if err != nil {
		return nil, err
	}
	nBytes, err := byteVolumePlan(s)
	if err != nil {
		return nil, err
	}
	join, err := NewJoin(nBytes, nConns, []string{FieldDstIP}, []string{FieldDstIP})
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{join}}, nil
}

func synCountPlan(s config.Settings, flag, field string) (*QueryPlan, error) {
	m, err := NewMap(fmt.Sprintf("(dst_ip, %s = 1)", field))
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		NewFilter(
			FieldTest{Field: FieldProtocol, Literal: tcpProtocol},
			FieldTest{Field: FieldTCPFlags, Literal: flag},
		),
		m,
		NewReduce([]string{FieldDstIP}, s.ReduceKind(), field),
	}}, nil
}

func synAckCountPlan(s config.Settings, flag, field string) (*QueryPlan, error) {
	m, err := NewMap(fmt.Sprintf("(src_ip, %s = 1)", field))
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		NewFilter(
			FieldTest{Field: FieldProtocol, Literal: tcpProtocol},
			FieldTest{Field: FieldTCPFlags, Literal: flag},
		),
		m,
		NewReduce([]string{FieldSrcIP}, s.ReduceKind(), field),
	}}, nil
}

func connCountPlan(s config.Settings) (*QueryPlan, error) {
	m1, err := NewMap("(dst_ip, src_ip, src_port)")
	if err != nil {
		return nil, err
	}
	m2, err := NewMap("(dst_ip, count = 1)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		NewFilter(FieldTest{Field: FieldProtocol, Literal: tcpProtocol}),
		m1,
		NewDistinct([]string{FieldDstIP, FieldSrcIP, FieldSrcPort}, s.DistinctKind()),
		m2,
		NewReduce([]string{FieldDstIP}, s.ReduceKind(), "count"),
		NewFilterResult(5, "count"),
	}}, nil
}

func byteVolumePlan(s config.Settings) (*QueryPlan, error) {
	m, err := NewMap("(dst_ip, total_len)")
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Operations: []Operation{
		NewFilter(FieldTest{Field: FieldProtocol, Literal: tcpProtocol}),
		m,
		NewReduce([]string{FieldDstIP}, s.ReduceKind(), "total_len"),
		NewFilterResult(500, "total_len"),
	}}, nil
}
