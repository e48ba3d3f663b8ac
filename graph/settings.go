package graph

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-viper/mapstructure/v2"
)

// DescriberInstructions is the fixed instruction text sent with every
// describe request unless a node overrides it.
const DescriberInstructions = `You are an expert visual analyst writing prompts for image and video generation models.
Describe the provided image so another model could recreate it: the main subject, its pose and expression,
clothing and materials, the setting and background, lighting direction and quality, color palette,
camera angle, lens and framing, and the overall artistic style or medium.
Write a single flowing paragraph in plain English without lists, headings or preamble.
Do not speculate about identities and do not mention that you are describing an image.
Keep the description under 500 characters.`

// Settings is the typed, defaulted settings record of one variant.
type Settings interface {
	Variant() Variant
}

// PromptSettings belongs to promptInput nodes.
type PromptSettings struct {
	Text string `json:"text"`
}

// ImageSettings configures the default image variant.
type ImageSettings struct {
	Size                      string `json:"size"`
	Width                     int    `json:"width"`
	Height                    int    `json:"height"`
	AspectRatio               string `json:"aspectRatio"`
	MaxImages                 int    `json:"maxImages"`
	EnhancePrompt             bool   `json:"enhancePrompt"`
	SequentialImageGeneration string `json:"sequentialImageGeneration"`
}

// FluxSettings configures the Flux text-to-image variant. A nil Seed lets
// the backend choose.
type FluxSettings struct {
	AspectRatio      string `json:"aspectRatio"`
	PromptUpsampling bool   `json:"promptUpsampling"`
	SafetyTolerance  int    `json:"safetyTolerance"`
	OutputFormat     string `json:"outputFormat"`
	Raw              bool   `json:"raw"`
	Seed             *int   `json:"seed"`
}

// FluxReduxSettings configures the Flux Redux image-variation variant.
type FluxReduxSettings struct {
	AspectRatio          string  `json:"aspectRatio"`
	Guidance             float64 `json:"guidance"`
	Megapixels           string  `json:"megapixels"`
	NumOutputs           int     `json:"numOutputs"`
	OutputFormat         string  `json:"outputFormat"`
	OutputQuality        int     `json:"outputQuality"`
	NumInferenceSteps    int     `json:"numInferenceSteps"`
	DisableSafetyChecker bool    `json:"disableSafetyChecker"`
}

// FluxCannySettings configures the Flux Canny control-image variant.
type FluxCannySettings struct {
	Seed             int     `json:"seed"`
	Steps            int     `json:"steps"`
	PromptUpsampling bool    `json:"promptUpsampling"`
	Guidance         float64 `json:"guidance"`
	SafetyTolerance  int     `json:"safetyTolerance"`
	OutputFormat     string  `json:"outputFormat"`
}

// FluxEditSettings configures the Flux Kontext edit variant.
type FluxEditSettings struct {
	AspectRatio      string `json:"aspectRatio"`
	OutputFormat     string `json:"outputFormat"`
	SafetyTolerance  int    `json:"safetyTolerance"`
	PromptUpsampling bool   `json:"promptUpsampling"`
	Seed             *int   `json:"seed"`
}

// DescriberSettings configures image describer nodes.
type DescriberSettings struct {
	ModelName         string `json:"modelName"`
	ModelInstructions string `json:"modelInstructions"`
}

// VideoSettings configures video generator nodes.
type VideoSettings struct {
	AspectRatio        string `json:"aspectRatio"`
	Duration           int    `json:"duration"`
	Quality            string `json:"quality"`
	Effect             string `json:"effect"`
	NegativePrompt     string `json:"negativePrompt"`
	MotionMode         string `json:"motionMode"`
	Seed               int    `json:"seed"`
	Style              string `json:"style"`
	EnableSoundEffects bool   `json:"enableSoundEffects"`
	SoundEffectPrompt  string `json:"soundEffectPrompt"`
}

func (PromptSettings) Variant() Variant    { return VariantPrompt }
func (ImageSettings) Variant() Variant     { return VariantDefault }
func (FluxSettings) Variant() Variant      { return VariantFlux }
func (FluxReduxSettings) Variant() Variant { return VariantFluxRedux }
func (FluxCannySettings) Variant() Variant { return VariantFluxCanny }
func (FluxEditSettings) Variant() Variant  { return VariantFluxEdit }
func (DescriberSettings) Variant() Variant { return VariantDescriber }
func (VideoSettings) Variant() Variant     { return VariantVideo }

const (
	defaultCannySeed = 41269
	defaultVideoSeed = 597311
)

// DefaultSettings returns the fixed default record for v.
func DefaultSettings(v Variant) Settings {
	switch v {
	case VariantPrompt:
		return &PromptSettings{}
	case VariantFlux:
		return &FluxSettings{
			AspectRatio:      "1:1",
			PromptUpsampling: true,
			SafetyTolerance:  2,
			OutputFormat:     "png",
		}
	case VariantFluxRedux:
		return &FluxReduxSettings{
			AspectRatio:       "1:1",
			Guidance:          3,
			Megapixels:        "1",
			NumOutputs:        1,
			OutputFormat:      "webp",
			OutputQuality:     80,
			NumInferenceSteps: 28,
		}
	case VariantFluxCanny:
		return &FluxCannySettings{
			Seed:            defaultCannySeed,
			Steps:           50,
			Guidance:        30,
			SafetyTolerance: 6,
			OutputFormat:    "jpg",
		}
	case VariantFluxEdit:
		return &FluxEditSettings{
			AspectRatio:     "match_input_image",
			OutputFormat:    "png",
			SafetyTolerance: 2,
		}
	case VariantDescriber:
		return &DescriberSettings{
			ModelName:         ModelGemini,
			ModelInstructions: DescriberInstructions,
		}
	case VariantVideo:
		return &VideoSettings{
			AspectRatio: "16:9",
			Duration:    5,
			Quality:     "720p",
			Effect:      "None",
			MotionMode:  "normal",
			Seed:        defaultVideoSeed,
			Style:       "None",
		}
	}
	return &ImageSettings{
		Size:                      "2K",
		Width:                     2048,
		Height:                    2048,
		AspectRatio:               "4:3",
		MaxImages:                 1,
		EnhancePrompt:             true,
		SequentialImageGeneration: "disabled",
	}
}

// SeedSource supplies seeds for variants whose seed is random by default.
// It receives the fixed default and returns the seed to use.
type SeedSource func(fallback int) int

// RandomSeeds draws a fresh seed per run.
func RandomSeeds(int) int { return rand.IntN(1_000_000) }

// StaticSeeds always returns the fixed default.
func StaticSeeds(fallback int) int { return fallback }

// ResolveSettings merges the node's persisted settings over the defaults of
// its variant. Seeds not persisted on the node are taken from seeds; a nil
// source keeps the fixed defaults.
func ResolveSettings(n Node, seeds SeedSource) (Settings, error) {
	out := DefaultSettings(n.Variant())
	if len(n.Settings) > 0 {
		if err := decodeOver(out, n.Settings); err != nil {
			return nil, fmt.Errorf("node %s settings: %w", n.ID, err)
		}
	}
	if seeds == nil {
		return out, nil
	}
	if _, persisted := n.Settings["seed"]; persisted {
		return out, nil
	}
	switch s := out.(type) {
	case *FluxCannySettings:
		s.Seed = seeds(s.Seed)
	case *VideoSettings:
		s.Seed = seeds(s.Seed)
	}
	return out, nil
}

func decodeOver(dst any, src map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}
