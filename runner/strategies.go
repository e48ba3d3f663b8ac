package runner

import (
	"context"
	"fmt"

	"github.com/kbukum/flowgen/backend"
	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/graph"
)

// Strategies returns one strategy per known variant, backed by b.
func Strategies(b *backend.Backends) []Strategy {
	return []Strategy{
		promptStrategy{},
		&imageStrategy{
			variant: graph.VariantDefault,
			inputs:  []InputSpec{{graph.HandlePrompt, true}, {graph.HandleImagePrompt, false}},
			expected: func(s graph.Settings) int {
				is := s.(*graph.ImageSettings)
				if is.SequentialImageGeneration == "auto" && is.MaxImages > 1 {
					return is.MaxImages
				}
				return 1
			},
			images: b.Images,
		},
		&imageStrategy{
			variant: graph.VariantFlux,
			inputs:  []InputSpec{{graph.HandlePrompt, true}, {graph.HandleImagePrompt, false}},
			images:  b.Images,
		},
		&imageStrategy{
			variant: graph.VariantFluxRedux,
			inputs:  []InputSpec{{graph.HandleReduxImage, true}},
			expected: func(s graph.Settings) int {
				return max(1, s.(*graph.FluxReduxSettings).NumOutputs)
			},
			images: b.Images,
		},
		&imageStrategy{
			variant: graph.VariantFluxCanny,
			inputs:  []InputSpec{{graph.HandleControlImage, true}, {graph.HandlePrompt, false}},
			images:  b.Images,
		},
		&imageStrategy{
			variant: graph.VariantFluxEdit,
			inputs:  []InputSpec{{graph.HandleEditImage, true}, {graph.HandlePrompt, false}},
			images:  b.Images,
		},
		&describerStrategy{describer: b.Describer},
		&videoStrategy{videos: b.Videos},
	}
}

// promptStrategy makes prompt nodes runnable as sources. It checks the
// text and never calls a backend.
type promptStrategy struct{}

func (promptStrategy) Variant() graph.Variant      { return graph.VariantPrompt }
func (promptStrategy) Inputs() []InputSpec         { return nil }
func (promptStrategy) Expected(graph.Settings) int { return 0 }

func (promptStrategy) Validate(call Call) error {
	if _, ok := call.Node.Output(); !ok {
		return apperrors.ValidationFailed(call.Node.ID, "text", "prompt text is empty")
	}
	return nil
}

func (promptStrategy) Dispatch(context.Context, Call) ([]graph.Artifact, error) {
	return nil, nil
}

// imageStrategy covers every image variant. Variants differ in which
// handles they read and how many images they return.
type imageStrategy struct {
	variant  graph.Variant
	inputs   []InputSpec
	expected func(graph.Settings) int
	images   backend.ImageGenerator
}

func (s *imageStrategy) Variant() graph.Variant { return s.variant }
func (s *imageStrategy) Inputs() []InputSpec    { return s.inputs }

func (s *imageStrategy) Expected(settings graph.Settings) int {
	if s.expected == nil {
		return 1
	}
	return s.expected(settings)
}

func (s *imageStrategy) Dispatch(ctx context.Context, call Call) ([]graph.Artifact, error) {
	req := backend.ImageRequest{
		Model:        modelOf(call.Node),
		Prompt:       call.Inputs[graph.HandlePrompt],
		ImagePrompt:  call.Inputs[graph.HandleImagePrompt],
		ReduxImage:   call.Inputs[graph.HandleReduxImage],
		ControlImage: call.Inputs[graph.HandleControlImage],
		EditImage:    call.Inputs[graph.HandleEditImage],
		Settings:     call.Settings,
	}
	resp, err := s.images.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	urls := resp.URLs()
	if len(urls) == 0 {
		return nil, apperrors.MalformedResponse(s.images.Name(), "imageUrl")
	}
	out := make([]graph.Artifact, 0, len(urls))
	for _, u := range urls {
		out = append(out, graph.Artifact{Kind: graph.ArtifactImage, Value: u})
	}
	return out, nil
}

type describerStrategy struct {
	describer backend.ImageDescriber
}

func (s *describerStrategy) Variant() graph.Variant      { return graph.VariantDescriber }
func (s *describerStrategy) Expected(graph.Settings) int { return 1 }

func (s *describerStrategy) Inputs() []InputSpec {
	return []InputSpec{{graph.HandleImage, true}}
}

func (s *describerStrategy) Dispatch(ctx context.Context, call Call) ([]graph.Artifact, error) {
	settings, ok := call.Settings.(*graph.DescriberSettings)
	if !ok {
		return nil, fmt.Errorf("describer: unexpected settings %T", call.Settings)
	}
	resp, err := s.describer.Execute(ctx, backend.DescribeRequest{
		ImageURL:     call.Inputs[graph.HandleImage],
		ModelName:    settings.ModelName,
		Instructions: settings.ModelInstructions,
	})
	if err != nil {
		return nil, err
	}
	return []graph.Artifact{{Kind: graph.ArtifactText, Value: resp.Description}}, nil
}

type videoStrategy struct {
	videos backend.VideoGenerator
}

func (s *videoStrategy) Variant() graph.Variant      { return graph.VariantVideo }
func (s *videoStrategy) Expected(graph.Settings) int { return 1 }

func (s *videoStrategy) Inputs() []InputSpec {
	return []InputSpec{
		{graph.HandlePrompt, true},
		{graph.HandleNegativePrompt, false},
		{graph.HandleFirstFrame, false},
	}
}

func (s *videoStrategy) Dispatch(ctx context.Context, call Call) ([]graph.Artifact, error) {
	settings, ok := call.Settings.(*graph.VideoSettings)
	if !ok {
		return nil, fmt.Errorf("video: unexpected settings %T", call.Settings)
	}
	// a connected negative prompt overrides the stored one
	if neg, ok := call.Inputs[graph.HandleNegativePrompt]; ok {
		settings.NegativePrompt = neg
	}
	resp, err := s.videos.Execute(ctx, backend.VideoRequest{
		Model:      modelOf(call.Node),
		Prompt:     call.Inputs[graph.HandlePrompt],
		FirstFrame: call.Inputs[graph.HandleFirstFrame],
		Settings:   settings,
	})
	if err != nil {
		return nil, err
	}
	return []graph.Artifact{{Kind: graph.ArtifactVideo, Value: resp.VideoURL}}, nil
}

func modelOf(n graph.Node) string {
	if n.Model != "" {
		return n.Model
	}
	return graph.DefaultModel(n.Type)
}
