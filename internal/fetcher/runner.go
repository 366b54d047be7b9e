package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/019ec6e2/dynamic-nft-generator/internal/domain"
	"github.com/019ec6e2/dynamic-nft-generator/internal/metaplex"
	"github.com/019ec6e2/dynamic-nft-generator/internal/observability"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage"
)

// ActivitySource fetches one batch of sale activity.
type ActivitySource interface {
	Fetch(ctx context.Context) ([]domain.Activity, error)
}

// PromptSource supplies the next art prompt. Never fails.
type PromptSource interface {
	Next() string
}

// ArtifactProducer turns a prompt into a stored artwork URL.
// Implemented by artwork.Pipeline.
type ArtifactProducer interface {
	Produce(ctx context.Context, prompt string) (string, error)
}

// MetadataUpdater submits one on-chain metadata update.
// Implemented by metaplex.Updater.
type MetadataUpdater interface {
	Update(ctx context.Context, params metaplex.UpdateParams) metaplex.UpdateResult
}

// Default runner configuration.
const (
	DefaultInterval    = 1 * time.Minute
	DefaultItemTimeout = 5 * time.Minute
)

// Runner is the dedup/polling engine. It periodically fetches sale activity,
// filters already-seen signatures, and processes each remaining item strictly
// sequentially: prompt -> artwork -> metadata update -> insert.
//
// The seen-set is engine state, empty at process start, and only ever an
// optimization: every per-item path re-checks the durable store before acting,
// so the store's uniqueness constraint stays the sole dedup authority.
type Runner struct {
	source      ActivitySource
	store       storage.TransactionStore
	prompts     PromptSource
	artwork     ArtifactProducer
	updater     MetadataUpdater
	interval    time.Duration
	itemTimeout time.Duration
	logger      logrus.FieldLogger

	seen map[string]struct{}
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source      ActivitySource
	Store       storage.TransactionStore
	Prompts     PromptSource
	Artwork     ArtifactProducer
	Updater     MetadataUpdater
	Interval    time.Duration // default 1 minute
	ItemTimeout time.Duration // per-item deadline, default 5 minutes
	Logger      logrus.FieldLogger
}

// NewRunner creates a new polling runner.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	itemTimeout := opts.ItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = DefaultItemTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		source:      opts.Source,
		store:       opts.Store,
		prompts:     opts.Prompts,
		artwork:     opts.Artwork,
		updater:     opts.Updater,
		interval:    interval,
		itemTimeout: itemTimeout,
		logger:      logger,
		seen:        make(map[string]struct{}),
	}
}

// Run starts the polling loop. It fetches once immediately, then on every
// tick. Cycles never overlap: the loop body is synchronous, so a cycle that
// outlasts the interval simply delays the next one.
// Blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.WithField("interval", r.interval).Info("starting activity polling")

	r.RunCycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("polling stopped")
			return ctx.Err()
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle executes one fetch/filter/process cycle. A fetch failure aborts
// the cycle with no state mutation; per-item failures are logged and absorbed.
func (r *Runner) RunCycle(ctx context.Context) {
	observability.RecordCycle()

	activities, err := r.source.Fetch(ctx)
	if err != nil {
		observability.RecordFetchError()
		r.logger.WithError(err).Error("activity fetch failed, cycle aborted")
		return
	}
	observability.RecordActivitiesFetched(len(activities))

	// Fast local filter. The store lookup in processActivity stays
	// authoritative per item.
	kept := activities[:0:0]
	for _, a := range activities {
		if _, ok := r.seen[a.Signature]; ok {
			continue
		}
		kept = append(kept, a)
	}

	// Strictly sequential: two items must never race on related state.
	for i := range kept {
		r.processActivity(ctx, &kept[i])
		if ctx.Err() != nil {
			return
		}
	}

	observability.RecordCycleCompleted()
}

// processActivity drives one sale through the at-most-once pipeline. Errors
// never escape: a failed item is logged and dropped for this cycle, retried
// only if the feed repeats it.
func (r *Runner) processActivity(ctx context.Context, activity *domain.Activity) {
	log := r.logger.WithField("signature", activity.Signature)

	ctx, cancel := context.WithTimeout(ctx, r.itemTimeout)
	defer cancel()

	exists, err := r.store.Exists(ctx, activity.Signature)
	if err != nil {
		observability.RecordItemError("store_lookup")
		log.WithError(err).Error("store lookup failed")
		return
	}
	if exists {
		// Already handled, possibly by another process instance.
		r.seen[activity.Signature] = struct{}{}
		return
	}

	log.Info("processing new transaction")
	tx := activity.ToSaleTransaction()

	// Artwork is enhancement, not a correctness requirement: on failure the
	// sale is still recorded without an image.
	imageURL, err := r.artwork.Produce(ctx, r.prompts.Next())
	if err != nil {
		observability.RecordArtifactFailure()
		log.WithError(err).Warn("artwork generation failed, continuing without image")
	} else {
		observability.RecordArtifactProduced()
		tx.ImageURL = &imageURL

		// Metadata failure is also non-fatal: the record is inserted with
		// metadata_evolved false and can be evolved later manually.
		result := r.updater.Update(ctx, metaplex.UpdateParams{
			AssetID: activity.Mint,
			NewURI:  &imageURL,
		})
		if !result.Success {
			observability.RecordMetadataUpdate("failure")
			log.WithError(result.Err).Warn("metadata update failed, recording sale anyway")
		} else {
			observability.RecordMetadataUpdate("success")
		}
	}

	if err := r.store.Insert(ctx, tx); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Race with another process or the webhook path: success-as-duplicate.
			observability.RecordTransactionDuplicate()
			log.Info("transaction inserted by another process, skipping")
			r.seen[activity.Signature] = struct{}{}
			return
		}
		observability.RecordItemError("insert")
		log.WithError(err).Error("transaction insert failed")
		return
	}

	observability.RecordTransactionStored()
	r.seen[activity.Signature] = struct{}{}
	log.WithField("has_image", tx.ImageURL != nil).Info("transaction stored")
}

// Seen reports whether the signature is in the engine's transient seen-set.
// Exposed for tests.
func (r *Runner) Seen(signature string) bool {
	_, ok := r.seen[signature]
	return ok
}
