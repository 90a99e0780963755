// Package ledger tracks conserved fractional balances per registered item.
// The core invariant: while an item is fragmented, the sum of all balances
// equals its total fragment count at every observable point.
package ledger

import (
	id "provena/pkg/domain"
)

// Item is the fragment record of one registered asset.
type Item struct {
	ID             id.ItemID
	TotalFragments uint64
	IsFragmented   bool
	// Balances maps principal to fragment count. A zero balance and an
	// absent entry are equivalent; writers remove entries that reach zero.
	Balances map[id.PrincipalID]uint64
}

// BalanceOf returns the principal's balance, treating absence as zero.
func (it *Item) BalanceOf(principal id.PrincipalID) uint64 {
	return it.Balances[principal]
}

// HolderCount returns the number of principals with a balance above zero.
func (it *Item) HolderCount() uint64 {
	var count uint64
	for _, balance := range it.Balances {
		if balance > 0 {
			count++
		}
	}
	return count
}

// balanceSum totals every balance for conservation checks.
func (it *Item) balanceSum() uint64 {
	var sum uint64
	for _, balance := range it.Balances {
		sum += balance
	}
	return sum
}
