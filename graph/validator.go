package graph

import (
	"fmt"
	"slices"
)

// imageOnlyHandles accept connections from image generators only.
var imageOnlyHandles = []Handle{HandleReduxImage, HandleControlImage, HandleEditImage}

// TextHandles returns the handles of target that accept text from a prompt
// node. The set depends on the target's type and, for image generators, on
// the model variant.
func TextHandles(target Node) []Handle {
	switch target.Type {
	case TypeVideoGenerator:
		return []Handle{HandlePrompt, HandleNegativePrompt}
	case TypeImageGenerator:
		switch target.Variant() {
		case VariantFluxCanny, VariantFluxEdit:
			return []Handle{HandlePrompt}
		}
		return []Handle{HandlePrompt, HandleImagePrompt}
	}
	return nil
}

// IsValidEdge reports whether an edge from source to target's targetHandle
// is structurally legal.
func IsValidEdge(source Node, sourceHandle Handle, target Node, targetHandle Handle) bool {
	return CheckEdge(source, sourceHandle, target, targetHandle) == nil
}

// CheckEdge is IsValidEdge with a reason on rejection.
func CheckEdge(source Node, _ Handle, target Node, targetHandle Handle) error {
	if source.Type == TypePromptInput && !slices.Contains(TextHandles(target), targetHandle) {
		return fmt.Errorf("%s does not accept text on %q", target.Type, targetHandle)
	}
	if slices.Contains(imageOnlyHandles, targetHandle) && source.Type != TypeImageGenerator {
		return fmt.Errorf("%q accepts only an %s source", targetHandle, TypeImageGenerator)
	}
	return nil
}
