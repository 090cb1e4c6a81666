package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Term is a fixed statistics time window.
type Term string

const (
	Term24Hours Term = "24hours"
	Term7Days   Term = "7days"
	Term30Days  Term = "30days"
	Term365Days Term = "365days"
)

// Terms lists every window the stats job recomputes, in recompute order.
var Terms = []Term{Term24Hours, Term7Days, Term30Days, Term365Days}

// ParseTerm maps a request string back to a Term.
func ParseTerm(s string) (Term, error) {
	switch Term(s) {
	case Term24Hours, Term7Days, Term30Days, Term365Days:
		return Term(s), nil
	}
	return "", fmt.Errorf("unknown term %q", s)
}

// Duration returns the window length of the term.
func (t Term) Duration() time.Duration {
	switch t {
	case Term24Hours:
		return 24 * time.Hour
	case Term7Days:
		return 7 * 24 * time.Hour
	case Term30Days:
		return 30 * 24 * time.Hour
	case Term365Days:
		return 365 * 24 * time.Hour
	}
	return 0
}

// RankingType is one of the sortable per-entity metrics.
type RankingType string

const (
	RankingBalance    RankingType = "balance"
	RankingDifference RankingType = "difference"
	RankingIn         RankingType = "in"
	RankingOut        RankingType = "out"
	RankingCount      RankingType = "count"
	RankingTotal      RankingType = "total"
	RankingRatio      RankingType = "ratio"
)

// RankingTypes lists every ranking metric in recompute order.
var RankingTypes = []RankingType{
	RankingBalance,
	RankingDifference,
	RankingIn,
	RankingOut,
	RankingCount,
	RankingTotal,
	RankingRatio,
}

// ParseRankingType maps a request string back to a RankingType.
func ParseRankingType(s string) (RankingType, error) {
	switch RankingType(s) {
	case RankingBalance, RankingDifference, RankingIn, RankingOut,
		RankingCount, RankingTotal, RankingRatio:
		return RankingType(s), nil
	}
	return "", fmt.Errorf("unknown ranking type %q", s)
}

// EntityStats holds every per-entity metric for one window, computed once and
// then sliced per ranking type.
type EntityStats struct {
	EntityID   uuid.UUID
	Balance    int64
	InAmount   int64
	OutAmount  int64
	Count      int64
	Total      int64
	Difference int64
	Ratio      int64
}

// metricValue maps each ranking type to its extractor, so the sort and the
// persisted rank value can never disagree.
var metricValue = map[RankingType]func(EntityStats) int64{
	RankingBalance:    func(s EntityStats) int64 { return s.Balance },
	RankingDifference: func(s EntityStats) int64 { return s.Difference },
	RankingIn:         func(s EntityStats) int64 { return s.InAmount },
	RankingOut:        func(s EntityStats) int64 { return s.OutAmount },
	RankingCount:      func(s EntityStats) int64 { return s.Count },
	RankingTotal:      func(s EntityStats) int64 { return s.Total },
	RankingRatio:      func(s EntityStats) int64 { return s.Ratio },
}

// ValueOf extracts this ranking type's metric from a stats row.
func (r RankingType) ValueOf(s EntityStats) int64 {
	return metricValue[r](s)
}

// SystemStats is the economy-wide aggregate for one term.
type SystemStats struct {
	Term       Term      `json:"term"`
	Balance    int64     `json:"balance"`
	Difference int64     `json:"difference"`
	Count      int64     `json:"count"`
	Total      int64     `json:"total"`
	Ratio      int64     `json:"ratio"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AggregateStats is the aggregate over one entity class (all users or all
// projects) for one term.
type AggregateStats struct {
	Term       Term      `json:"term"`
	Number     int64     `json:"number"`
	Balance    int64     `json:"balance"`
	Difference int64     `json:"difference"`
	Count      int64     `json:"count"`
	Total      int64     `json:"total"`
	Ratio      int64     `json:"ratio"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RankingEntry is one cached ranking row: an entity's rank for one
// (term, ranking type) pair. Difference is previousRank - rank, so positive
// means the entity moved toward rank 1 since the last recomputation.
type RankingEntry struct {
	Term        Term        `json:"term"`
	RankingType RankingType `json:"rankingType"`
	EntityID    uuid.UUID   `json:"entityId"`
	Rank        int64       `json:"rank"`
	Value       int64       `json:"value"`
	Difference  int64       `json:"difference"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// RankingPosition is an entity's placement in a single ranking.
type RankingPosition struct {
	Rank       int64 `json:"rank"`
	Value      int64 `json:"value"`
	Difference int64 `json:"difference"`
}

// IndividualStats gathers one entity's position in every ranking for a term.
type IndividualStats struct {
	Balance    RankingPosition `json:"balance"`
	Difference RankingPosition `json:"difference"`
	InAmount   RankingPosition `json:"in"`
	OutAmount  RankingPosition `json:"out"`
	Count      RankingPosition `json:"count"`
	Total      RankingPosition `json:"total"`
	Ratio      RankingPosition `json:"ratio"`
}
