package backend

import (
	"fmt"

	"github.com/kbukum/flowgen/httpclient"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
	"github.com/kbukum/flowgen/provider"
)

// Backends groups the three generation calls used by the node runner.
type Backends struct {
	Images    ImageGenerator
	Describer ImageDescriber
	Videos    VideoGenerator
}

// New builds HTTP backends from cfg, each wrapped with logging, tracing,
// metrics and resilience middleware (outermost first).
func New(cfg Config, log *logger.Logger, metrics *observability.Metrics) (*Backends, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.WithComponent("backend")

	images, err := httpclient.New(cfg.Images.HTTP)
	if err != nil {
		return nil, fmt.Errorf("images client: %w", err)
	}
	describer, err := httpclient.New(cfg.Describer.HTTP)
	if err != nil {
		return nil, fmt.Errorf("describer client: %w", err)
	}
	videos, err := httpclient.New(cfg.Videos.HTTP)
	if err != nil {
		return nil, fmt.Errorf("videos client: %w", err)
	}

	return &Backends{
		Images:    wrap(NewHTTPImageGenerator(images), cfg.Images.Resilience, log, metrics),
		Describer: wrap(NewHTTPImageDescriber(describer), cfg.Describer.Resilience, log, metrics),
		Videos:    wrap(NewHTTPVideoGenerator(videos), cfg.Videos.Resilience, log, metrics),
	}, nil
}

func wrap[I, O any](p provider.RequestResponse[I, O], rc provider.ResilienceConfig, log *logger.Logger, metrics *observability.Metrics) provider.RequestResponse[I, O] {
	return provider.Chain(
		provider.WithLogging[I, O](log),
		provider.WithTracing[I, O]("backend"),
		provider.WithMetrics[I, O](metrics),
		provider.WithResilience[I, O](rc),
	)(p)
}
