package player

import (
	"cmp"
	"slices"
)

// SortRecords orders discovery records the way DiscoveryLedger.List promises:
// oldest first, ties broken by key so the order is deterministic.
func SortRecords(records []DiscoveryRecord) {
	slices.SortFunc(records, func(a, b DiscoveryRecord) int {
		if c := a.DiscoveredAt.Compare(b.DiscoveredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
}

// SortByXP sorts players by a skill's experience, highest first. Players with
// equal experience keep their relative input order.
func SortByXP(players []PlayerStats, skillName string) {
	slices.SortStableFunc(players, func(a, b PlayerStats) int {
		return cmp.Compare(b.XP(skillName), a.XP(skillName))
	})
}
