package domain

// Webhook event types recognized by the ingest endpoint.
const (
	WebhookTypeNFTSale = "NFT_SALE"
)

// WebhookEvent is one externally-pushed event. Only NFT_SALE events carry a
// payload this system acts on; everything else is logged and accepted.
type WebhookEvent struct {
	Type   string         `json:"type"`
	Events *WebhookEvents `json:"events,omitempty"`
}

// WebhookEvents wraps the per-kind payloads of a webhook event.
type WebhookEvents struct {
	NFT *NFTSaleEvent `json:"nft,omitempty"`
}

// NFTSaleEvent is the sale payload pushed by the webhook provider.
type NFTSaleEvent struct {
	NFTs        []NFTRef `json:"nfts"`
	Amount      int64    `json:"amount"`
	Buyer       string   `json:"buyer"`
	Seller      string   `json:"seller"`
	Source      string   `json:"source"`
	Description string   `json:"description"`
	Timestamp   int64    `json:"timestamp"`
	SaleType    string   `json:"saleType"`
	Signature   string   `json:"signature"`
	Slot        int64    `json:"slot"`
	Type        string   `json:"type"`
}

// NFTRef identifies one NFT touched by a sale event.
type NFTRef struct {
	Mint          string `json:"mint"`
	TokenStandard string `json:"tokenStandard"`
}

// ValidateNFTSale checks that a recognized sale event carries everything the
// metadata updater needs. Returns a list of issues; empty means valid.
func (e *WebhookEvent) ValidateNFTSale() []string {
	var issues []string

	if e.Events == nil || e.Events.NFT == nil {
		return append(issues, "events.nft: missing sale payload")
	}

	nft := e.Events.NFT
	if len(nft.NFTs) == 0 {
		issues = append(issues, "events.nft.nfts: at least one nft is required")
	} else if nft.NFTs[0].Mint == "" {
		issues = append(issues, "events.nft.nfts[0].mint: required")
	}
	if nft.Amount <= 0 {
		issues = append(issues, "events.nft.amount: required")
	}
	if nft.Buyer == "" {
		issues = append(issues, "events.nft.buyer: required")
	}
	if nft.Seller == "" {
		issues = append(issues, "events.nft.seller: required")
	}
	if nft.Source == "" {
		issues = append(issues, "events.nft.source: required")
	}
	if nft.Timestamp <= 0 {
		issues = append(issues, "events.nft.timestamp: required")
	}
	if nft.SaleType == "" {
		issues = append(issues, "events.nft.saleType: required")
	}
	if nft.Signature == "" {
		issues = append(issues, "events.nft.signature: required")
	}
	if nft.Slot <= 0 {
		issues = append(issues, "events.nft.slot: required")
	}

	return issues
}
