package main

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// SearchStats collects per-worker counters. Each worker owns its own
// instance; the driver sums them when reporting.
type SearchStats struct {
	Nodes    int64
	QNodes   int64
	Seldepth int

	TTProbes int64
	TTHits   int64
	TTCuts   int64
	TTStores int64

	BetaCutoffs  int64
	NullCutoffs  int64
	FutilePrunes int64
	LMRResearch  int64

	Start           time.Time
	DepthDurations  []time.Duration
	CompletedDepths int
}

func (s *SearchStats) add(other *SearchStats) {
	s.Nodes += other.Nodes
	s.QNodes += other.QNodes
	if other.Seldepth > s.Seldepth {
		s.Seldepth = other.Seldepth
	}
	s.TTProbes += other.TTProbes
	s.TTHits += other.TTHits
	s.TTCuts += other.TTCuts
	s.TTStores += other.TTStores
	s.BetaCutoffs += other.BetaCutoffs
	s.NullCutoffs += other.NullCutoffs
	s.FutilePrunes += other.FutilePrunes
	s.LMRResearch += other.LMRResearch
	if other.CompletedDepths > s.CompletedDepths {
		s.CompletedDepths = other.CompletedDepths
	}
}

func logSearchStats(tag string, stats *SearchStats, tt *TranspositionTable) {
	if stats == nil {
		return
	}
	elapsed := time.Duration(0)
	if !stats.Start.IsZero() {
		elapsed = time.Since(stats.Start)
	}
	nps := 0.0
	if elapsed > 0 {
		nps = float64(stats.Nodes) / elapsed.Seconds()
	}
	ttHitRate := 0.0
	if stats.TTProbes > 0 {
		ttHitRate = float64(stats.TTHits) * 100.0 / float64(stats.TTProbes)
	}
	parts := make([]string, 0, len(stats.DepthDurations))
	for _, d := range stats.DepthDurations {
		parts = append(parts, fmt.Sprintf("%dms", d.Milliseconds()))
	}
	hashfull := 0
	if tt != nil {
		hashfull = tt.Hashfull()
	}
	// log, not stdout: in UCI mode stdout carries only protocol lines.
	log.Printf("[search:%s] t=%dms completed=%d nodes=%d qnodes=%d seldepth=%d nps=%.0f tt_probe=%d tt_hit=%d tt_hit_rate=%.1f%% tt_cut=%d tt_store=%d beta_cut=%d null_cut=%d futile=%d lmr_research=%d hashfull=%d depth_times=[%s]",
		tag,
		elapsed.Milliseconds(),
		stats.CompletedDepths,
		stats.Nodes,
		stats.QNodes,
		stats.Seldepth,
		nps,
		stats.TTProbes,
		stats.TTHits,
		ttHitRate,
		stats.TTCuts,
		stats.TTStores,
		stats.BetaCutoffs,
		stats.NullCutoffs,
		stats.FutilePrunes,
		stats.LMRResearch,
		hashfull,
		strings.Join(parts, ","),
	)
}
