package resource

import (
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/pipeline"
	"github.com/sirupsen/logrus"
)

// ResourceBuilderOption is a functional option applied to a Builder during construction via NewBuilder.
type ResourceBuilderOption func(*builder)

// WithPipelineCache shares an existing pipeline cache, so several builders on one device reuse pipelines.
//
// Parameters:
//   - cache: the cache to use
//
// Returns:
//   - ResourceBuilderOption: a function that applies the cache option to a builder
func WithPipelineCache(cache *pipeline.Cache) ResourceBuilderOption {
	return func(b *builder) {
		b.cache = cache
	}
}

// WithLogger sets the logger entry used by the builder.
func WithLogger(log *logrus.Entry) ResourceBuilderOption {
	return func(b *builder) {
		if log != nil {
			b.log = log.WithField("component", "resource")
		}
	}
}
