package state

import "sort"

// Rank orders players by score, highest first. Equal scores keep the order of
// playerIDs (join order), and every player gets a distinct rank from 1.
func Rank(playerIDs []string, scores map[string]int) []Ranking {
	rankings := make([]Ranking, 0, len(playerIDs))
	for _, id := range playerIDs {
		rankings = append(rankings, Ranking{PlayerID: id, Score: scores[id]})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Score > rankings[j].Score
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}
