package handler

// BalanceResponse is the HTTP response for a balance lookup.
type BalanceResponse struct {
	ItemID      string `json:"item_id"`
	PrincipalID string `json:"principal_id"`
	Balance     uint64 `json:"balance"`
}

// HolderCountResponse is the HTTP response for a holder count lookup.
type HolderCountResponse struct {
	ItemID      string `json:"item_id"`
	HolderCount uint64 `json:"holder_count"`
}

// FragmentValueResponse is the HTTP response for a fragment valuation.
type FragmentValueResponse struct {
	ItemID        string `json:"item_id"`
	FragmentCount uint64 `json:"fragment_count"`
	TotalValue    uint64 `json:"total_value"`
	Value         uint64 `json:"value"`
}
