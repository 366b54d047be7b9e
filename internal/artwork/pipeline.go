package artwork

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Uploader persists image bytes under a key and returns a public URL.
// Implemented by objectstore.Client.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageGenerator produces raw image bytes for a prompt.
// Implemented by Generator.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Pipeline produces one stored artwork per successful call: generate image
// bytes, then upload them under a fresh key. Upload is only attempted once the
// bytes are fully available, so a failed call leaves no orphaned partial
// upload.
type Pipeline struct {
	generator ImageGenerator
	uploader  Uploader
	logger    logrus.FieldLogger
}

// NewPipeline creates an artifact pipeline.
func NewPipeline(generator ImageGenerator, uploader Uploader, logger logrus.FieldLogger) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{
		generator: generator,
		uploader:  uploader,
		logger:    logger,
	}
}

// Produce generates artwork for the prompt and returns its public URL.
// Any failure surfaces as ErrGenerationFailed; the caller decides whether to
// proceed without an image.
func (p *Pipeline) Produce(ctx context.Context, prompt string) (string, error) {
	data, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	key := uuid.NewString() + ".png"
	publicURL, err := p.uploader.Upload(ctx, key, data, "image/png")
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", ErrGenerationFailed, err)
	}

	p.logger.WithFields(logrus.Fields{
		"key":    key,
		"prompt": prompt,
	}).Info("artwork stored")
	return publicURL, nil
}
