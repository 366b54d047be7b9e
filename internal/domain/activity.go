package domain

import "time"

// Activity is one sale event as reported by the external activity feed.
type Activity struct {
	Signature      string  `json:"signature"`
	Mint           string  `json:"mint"`
	Name           string  `json:"name"`
	Buyer          string  `json:"buyer"`
	Seller         string  `json:"seller"`
	Amount         float64 `json:"amount"`
	AmountLamports int64   `json:"amountInLamports"`
	Currency       string  `json:"currency"`
	Marketplace    string  `json:"marketplace"`
	Type           string  `json:"type"`
	Blocktime      int64   `json:"blocktime"`
	MarketplaceFee string  `json:"marketplacefee,omitempty"`
	RoyaltyFee     string  `json:"royaltyfee,omitempty"`
}

// OccurredAt converts the feed blocktime (unix seconds) to a time.Time.
func (a *Activity) OccurredAt() time.Time {
	return time.Unix(a.Blocktime, 0).UTC()
}

// ToSaleTransaction builds a store record from a feed activity.
// ImageURL is left nil; the pipeline fills it in when artwork was produced.
func (a *Activity) ToSaleTransaction() *SaleTransaction {
	tx := &SaleTransaction{
		Signature:      a.Signature,
		Mint:           a.Mint,
		Buyer:          a.Buyer,
		Seller:         a.Seller,
		Amount:         a.Amount,
		AmountLamports: a.AmountLamports,
		Currency:       a.Currency,
		Marketplace:    a.Marketplace,
		SaleType:       a.Type,
		OccurredAt:     a.OccurredAt(),
	}
	if a.Name != "" {
		name := a.Name
		tx.Name = &name
	}
	if a.MarketplaceFee != "" {
		fee := a.MarketplaceFee
		tx.MarketplaceFee = &fee
	}
	if a.RoyaltyFee != "" {
		fee := a.RoyaltyFee
		tx.RoyaltyFee = &fee
	}
	return tx
}
