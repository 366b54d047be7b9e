package domain

import "time"

// SaleTransaction represents one observed NFT sale.
// Corresponds to nft_transactions table in PostgreSQL.
type SaleTransaction struct {
	ID              int64     // BIGSERIAL primary key
	Signature       string    // on-chain sale signature, UNIQUE, primary dedup key
	Mint            string    // asset identifier of the sold NFT
	Name            *string   // display name at sale time (nullable)
	Buyer           string    // buyer address
	Seller          string    // seller address
	Amount          float64   // sale price in the quoted currency
	AmountLamports  int64     // sale price in base units
	Currency        string    // e.g. "SOL"
	Marketplace     string    // marketplace identifier
	SaleType        string    // e.g. "sale", "auction"
	OccurredAt      time.Time // blocktime of the on-chain event
	ImageURL        *string   // public reference to generated artwork (nullable)
	MarketplaceFee  *string   // marketplace fee (nullable)
	RoyaltyFee      *string   // royalty fee (nullable)
	MetadataEvolved bool      // true once the on-chain metadata update succeeded
	CreatedAt       time.Time // record creation timestamp
}
