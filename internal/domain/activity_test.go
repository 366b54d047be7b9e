package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity_ToSaleTransaction(t *testing.T) {
	a := Activity{
		Signature:      "SIG1",
		Mint:           "M1",
		Name:           "NFT #1",
		Buyer:          "B",
		Seller:         "S",
		Amount:         1.5,
		AmountLamports: 1500000000,
		Currency:       "SOL",
		Marketplace:    "tensor",
		Type:           "sale",
		Blocktime:      1700000000,
		MarketplaceFee: "0.02",
	}

	tx := a.ToSaleTransaction()
	assert.Equal(t, "SIG1", tx.Signature)
	assert.Equal(t, "M1", tx.Mint)
	require.NotNil(t, tx.Name)
	assert.Equal(t, "NFT #1", *tx.Name)
	assert.True(t, tx.OccurredAt.Equal(time.Unix(1700000000, 0)))
	require.NotNil(t, tx.MarketplaceFee)
	assert.Equal(t, "0.02", *tx.MarketplaceFee)
	assert.Nil(t, tx.RoyaltyFee)
	assert.Nil(t, tx.ImageURL)
	assert.False(t, tx.MetadataEvolved)
}

func TestActivity_EmptyOptionalFieldsStayNil(t *testing.T) {
	a := Activity{Signature: "SIG1", Mint: "M1"}
	tx := a.ToSaleTransaction()
	assert.Nil(t, tx.Name)
	assert.Nil(t, tx.MarketplaceFee)
	assert.Nil(t, tx.RoyaltyFee)
}

func TestWebhookEvent_ValidateNFTSale(t *testing.T) {
	valid := WebhookEvent{
		Type: WebhookTypeNFTSale,
		Events: &WebhookEvents{NFT: &NFTSaleEvent{
			NFTs:      []NFTRef{{Mint: "M1"}},
			Amount:    1500000000,
			Buyer:     "B",
			Seller:    "S",
			Source:    "MAGIC_EDEN",
			Timestamp: 1700000000,
			SaleType:  "INSTANT_SALE",
			Signature: "SIG1",
			Slot:      123456,
		}},
	}
	assert.Empty(t, valid.ValidateNFTSale())

	missingPayload := WebhookEvent{Type: WebhookTypeNFTSale}
	assert.Len(t, missingPayload.ValidateNFTSale(), 1)

	missingFields := WebhookEvent{
		Type:   WebhookTypeNFTSale,
		Events: &WebhookEvents{NFT: &NFTSaleEvent{NFTs: []NFTRef{{Mint: ""}}}},
	}
	issues := missingFields.ValidateNFTSale()
	assert.Len(t, issues, 9, "every required sale field is reported")
	for _, field := range []string{"mint", "amount", "buyer", "seller", "source",
		"timestamp", "saleType", "signature", "slot"} {
		assert.Contains(t, strings.Join(issues, "\n"), field)
	}
}

func TestWebhookEvent_ValidateNFTSale_SingleMissingField(t *testing.T) {
	event := WebhookEvent{
		Type: WebhookTypeNFTSale,
		Events: &WebhookEvents{NFT: &NFTSaleEvent{
			NFTs:      []NFTRef{{Mint: "M1"}},
			Amount:    1,
			Buyer:     "B",
			Seller:    "S",
			Source:    "MAGIC_EDEN",
			Timestamp: 1700000000,
			Signature: "SIG1",
			Slot:      1,
		}},
	}
	issues := event.ValidateNFTSale()
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "saleType")
}
