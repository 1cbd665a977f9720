// Package draft implements the pure turn math for snake drafts. The
// authoritative drafter is always derived from the number of picks already
// recorded, so there is no separate "advance turn" state to keep consistent.
package draft

import (
	"math/rand"

	"github.com/calebzhan/fflbot/internal/domain"
)

// DrafterIndex returns the index into the draft order for pick number k
// (0-based) among n drafters. Even rounds ascend, odd rounds descend, so the
// last picker of a round also opens the next one.
func DrafterIndex(k, n int) int {
	if n <= 0 {
		return 0
	}
	round := k / n
	pos := k % n
	if round%2 == 0 {
		return pos
	}
	return n - 1 - pos
}

// ExpectedDrafter returns the participant whose turn it is given the fixed
// draft order and the count of picks already made this session.
func ExpectedDrafter(order []string, completedPicks int) string {
	if len(order) == 0 {
		return ""
	}
	return order[DrafterIndex(completedPicks, len(order))]
}

// Round returns the 0-based snake round that pick k falls in.
func Round(k, n int) int {
	if n <= 0 {
		return 0
	}
	return k / n
}

// Shuffle returns a random permutation of the joined players, used once to
// fix a league's draft order when the draft starts.
func Shuffle(players []string) []string {
	order := make([]string, len(players))
	copy(order, players)
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// TotalPicks is the number of picks a full session produces.
func TotalPicks(league domain.League, playerCount int) int {
	return playerCount * league.MarketsPerSession
}
