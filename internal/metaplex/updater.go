// Package metaplex updates on-chain asset metadata to reference newly
// generated artwork.
package metaplex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/019ec6e2/dynamic-nft-generator/internal/chain"
)

// AssetClient is the on-chain surface the updater depends on.
// Implemented by chain.Client.
type AssetClient interface {
	GetAsset(ctx context.Context, id string) (*chain.Asset, error)
	GetCollection(ctx context.Context, id string) (*chain.Collection, error)
	SendUpdate(ctx context.Context, params chain.UpdateParams) (string, error)
}

// Confirmer waits until a submitted transaction is confirmed.
// Implemented by chain.ConfirmationClient. Optional.
type Confirmer interface {
	WaitForConfirmation(ctx context.Context, signature string) error
}

// DocumentUploader persists the merged metadata document.
// Implemented by objectstore.Client.
type DocumentUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// UpdateParams describes one metadata update request.
type UpdateParams struct {
	AssetID string
	NewURI  *string // new artwork reference; nil leaves image fields untouched
	NewName *string // new display name; nil leaves the name untouched
}

// UpdateResult is the typed outcome of an update. Failures are carried in Err
// rather than raised: callers log and continue.
type UpdateResult struct {
	Success   bool
	Signature string // transaction identifier when Success
	Err       error
}

// Updater implements the metadata update sequence: resolve asset, fetch its
// off-chain document, merge, persist the merged document, and submit one
// signed on-chain update. The operation is not idempotent at the chain level;
// callers invoke it at most once per lifecycle event.
type Updater struct {
	client     AssetClient
	confirmer  Confirmer
	uploader   DocumentUploader
	collection string // configured collection id, may be empty
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// Options configures an Updater.
type Options struct {
	Client     AssetClient
	Confirmer  Confirmer
	Uploader   DocumentUploader
	Collection string
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// NewUpdater creates a metadata updater.
func NewUpdater(opts Options) *Updater {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Updater{
		client:     opts.Client,
		confirmer:  opts.Confirmer,
		uploader:   opts.Uploader,
		collection: opts.Collection,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Update performs the full metadata update sequence for one asset. All failure
// is returned inside UpdateResult; nothing propagates past this boundary.
func (u *Updater) Update(ctx context.Context, params UpdateParams) UpdateResult {
	log := u.logger.WithField("asset", params.AssetID)

	asset, err := u.client.GetAsset(ctx, params.AssetID)
	if err != nil {
		return failure(fmt.Errorf("fetch asset: %w", err))
	}

	doc, err := u.fetchDocument(ctx, asset.URI())
	if err != nil {
		return failure(fmt.Errorf("fetch metadata document: %w", err))
	}

	if params.NewURI != nil {
		mergeImage(doc, *params.NewURI)
	}
	if params.NewName != nil {
		doc["name"] = *params.NewName
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return failure(fmt.Errorf("marshal merged document: %w", err))
	}

	key := uuid.NewString() + ".json"
	docURL, err := u.uploader.Upload(ctx, key, merged, "application/json")
	if err != nil {
		return failure(fmt.Errorf("upload merged document: %w", err))
	}

	update := chain.UpdateParams{
		Asset:   params.AssetID,
		NewURI:  docURL,
		NewName: params.NewName,
	}
	if u.collection != "" {
		collection, err := u.client.GetCollection(ctx, u.collection)
		if err != nil {
			return failure(fmt.Errorf("fetch collection: %w", err))
		}
		update.Collection = collection.ID
	}

	signature, err := u.client.SendUpdate(ctx, update)
	if err != nil {
		return failure(fmt.Errorf("submit update: %w", err))
	}

	if u.confirmer != nil {
		if err := u.confirmer.WaitForConfirmation(ctx, signature); err != nil {
			return failure(fmt.Errorf("confirm update %s: %w", signature, err))
		}
	}

	log.WithField("signature", signature).Info("metadata update confirmed")
	return UpdateResult{Success: true, Signature: signature}
}

// fetchDocument downloads and decodes the asset's off-chain metadata document.
func (u *Updater) fetchDocument(ctx context.Context, uri string) (map[string]interface{}, error) {
	if uri == "" {
		return nil, fmt.Errorf("asset has no metadata URI")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create document request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get document: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// mergeImage shallow-merges the new artwork reference into the document: the
// top-level image field and the first properties.files entry URI.
func mergeImage(doc map[string]interface{}, newURI string) {
	doc["image"] = newURI

	props, ok := doc["properties"].(map[string]interface{})
	if !ok {
		props = map[string]interface{}{}
		doc["properties"] = props
	}
	files, ok := props["files"].([]interface{})
	if !ok || len(files) == 0 {
		props["files"] = []interface{}{
			map[string]interface{}{"uri": newURI, "type": "image/png"},
		}
		return
	}
	if first, ok := files[0].(map[string]interface{}); ok {
		first["uri"] = newURI
	}
}

func failure(err error) UpdateResult {
	return UpdateResult{Success: false, Err: err}
}
