package graph

import "strings"

// Variant selects the runner strategy for a node.
type Variant string

const (
	VariantPrompt    Variant = "prompt"
	VariantDefault   Variant = "default"
	VariantFlux      Variant = "flux"
	VariantFluxRedux Variant = "fluxRedux"
	VariantFluxCanny Variant = "fluxCanny"
	VariantFluxEdit  Variant = "fluxEdit"
	VariantDescriber Variant = "describer"
	VariantVideo     Variant = "video"
)

// Known model ids.
const (
	ModelSeedream    = "bytedance/seedream-4"
	ModelFluxPro     = "black-forest-labs/flux-1.1-pro"
	ModelFluxRedux   = "black-forest-labs/flux-redux-dev"
	ModelFluxCanny   = "black-forest-labs/flux-canny-pro"
	ModelFluxKontext = "black-forest-labs/flux-kontext-pro"
	ModelPixverse    = "pixverse/pixverse-v4.5"
	ModelGemini      = "gemini-2.5-flash"
)

var imageCatalog = map[string]Variant{
	ModelSeedream:    VariantDefault,
	ModelFluxPro:     VariantFlux,
	ModelFluxRedux:   VariantFluxRedux,
	ModelFluxCanny:   VariantFluxCanny,
	ModelFluxKontext: VariantFluxEdit,
}

// ResolveVariant maps a node type and model id to a variant. Image model ids
// outside the catalog are classified by name; anything unrecognised runs as
// the default image variant.
func ResolveVariant(t NodeType, model string) Variant {
	switch t {
	case TypePromptInput:
		return VariantPrompt
	case TypeImageDescriber:
		return VariantDescriber
	case TypeVideoGenerator:
		return VariantVideo
	}

	if v, ok := imageCatalog[model]; ok {
		return v
	}
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "redux"):
		return VariantFluxRedux
	case strings.Contains(m, "canny"):
		return VariantFluxCanny
	case strings.Contains(m, "kontext"), strings.Contains(m, "edit"):
		return VariantFluxEdit
	case strings.Contains(m, "flux"):
		return VariantFlux
	}
	return VariantDefault
}

// DefaultModel returns the model used when a node does not name one.
func DefaultModel(t NodeType) string {
	switch t {
	case TypeImageGenerator:
		return ModelSeedream
	case TypeImageDescriber:
		return ModelGemini
	case TypeVideoGenerator:
		return ModelPixverse
	}
	return ""
}
