package chain

// Asset is an on-chain asset record as returned by the getAsset RPC method.
type Asset struct {
	ID          string           `json:"id"`
	Content     AssetContent     `json:"content"`
	Authorities []AssetAuthority `json:"authorities"`
	Grouping    []AssetGrouping  `json:"grouping"`
}

// AssetContent holds the off-chain metadata pointers of an asset.
type AssetContent struct {
	JSONURI  string        `json:"json_uri"`
	Metadata AssetMetadata `json:"metadata"`
}

// AssetMetadata is the inline metadata summary of an asset.
type AssetMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// AssetAuthority is one authority entry of an asset.
type AssetAuthority struct {
	Address string   `json:"address"`
	Scopes  []string `json:"scopes"`
}

// AssetGrouping links an asset to a group, e.g. its collection.
type AssetGrouping struct {
	GroupKey   string `json:"group_key"`
	GroupValue string `json:"group_value"`
}

// URI returns the asset's off-chain metadata document URI.
func (a *Asset) URI() string {
	return a.Content.JSONURI
}

// Name returns the asset's current display name.
func (a *Asset) Name() string {
	return a.Content.Metadata.Name
}

// Collection is the governing collection record of an asset.
type Collection struct {
	ID      string       `json:"id"`
	Content AssetContent `json:"content"`
}

// UpdateParams describes one metadata update transaction.
type UpdateParams struct {
	Asset      string  // asset id being updated
	NewURI     string  // new off-chain document URI
	NewName    *string // optional new display name
	Collection string  // collection id, empty when none configured
}

// blockhashResult is the getLatestBlockhash response payload.
type blockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight int64  `json:"lastValidBlockHeight"`
	} `json:"value"`
}
