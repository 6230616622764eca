package service

import (
	"math"
	"sort"
)

// round1 rounds to one decimal place. Subject totals are stored at
// this precision.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places. Class averages are reported at
// this precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RankEntry pairs a student with the score being ranked.
type RankEntry struct {
	StudentID int64
	Score     float64
}

// Rank assigns competition-style positions: equal scores share a
// position and the next distinct score skips past the tie, so scores
// 90, 90, 80 rank 1, 1, 3. Every entry receives a position.
func Rank(entries []RankEntry) map[int64]int {
	sorted := make([]RankEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	positions := make(map[int64]int, len(sorted))
	for i, entry := range sorted {
		if i > 0 && entry.Score == sorted[i-1].Score {
			positions[entry.StudentID] = positions[sorted[i-1].StudentID]
			continue
		}
		positions[entry.StudentID] = i + 1
	}
	return positions
}

// RankPositive ranks like Rank but only entries with a positive score
// participate. Entries at zero or below map to an absent position;
// callers render those as blank so unscored students never show a
// misleading last place.
func RankPositive(entries []RankEntry) map[int64]int {
	scored := make([]RankEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Score > 0 {
			scored = append(scored, entry)
		}
	}
	return Rank(scored)
}
