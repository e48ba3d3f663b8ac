package graph

import (
	"strings"
	"time"
)

// NodeType identifies the kind of a node.
type NodeType string

const (
	TypePromptInput    NodeType = "promptInput"
	TypeImageGenerator NodeType = "imageGenerator"
	TypeImageDescriber NodeType = "imageDescriber"
	TypeVideoGenerator NodeType = "videoGenerator"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case TypePromptInput, TypeImageGenerator, TypeImageDescriber, TypeVideoGenerator:
		return true
	}
	return false
}

// Handle names a connection point on a node.
type Handle string

const (
	HandlePrompt         Handle = "prompt"
	HandleImagePrompt    Handle = "imagePrompt"
	HandleNegativePrompt Handle = "negativePrompt"
	HandleImage          Handle = "image"
	HandleReduxImage     Handle = "reduxImage"
	HandleControlImage   Handle = "controlImage"
	HandleEditImage      Handle = "editImage"
	HandleFirstFrame     Handle = "firstFrame"

	HandleText  Handle = "text"
	HandleVideo Handle = "video"
)

// ArtifactKind is the media type of a generated artifact.
type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
	ArtifactText  ArtifactKind = "text"
)

// Artifact is one generated output: a media URL or a description.
type Artifact struct {
	Kind      ArtifactKind `json:"kind"`
	Value     string       `json:"value"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Result is the mutable output state of a node.
//
// CurrentIndex is within [0, len(Artifacts)) when Artifacts is non-empty
// and 0 otherwise.
type Result struct {
	Artifacts    []Artifact `json:"artifacts"`
	CurrentIndex int        `json:"currentIndex"`
	Generating   bool       `json:"generating"`
	LastError    string     `json:"lastError,omitempty"`
}

// Append adds artifacts after the existing ones and points CurrentIndex at
// the newest.
func (r *Result) Append(artifacts ...Artifact) {
	if len(artifacts) == 0 {
		return
	}
	r.Artifacts = append(r.Artifacts, artifacts...)
	r.CurrentIndex = len(r.Artifacts) - 1
}

// Current returns the displayed artifact.
func (r Result) Current() (Artifact, bool) {
	if len(r.Artifacts) == 0 {
		return Artifact{}, false
	}
	return r.Artifacts[r.clampedIndex()], true
}

// Normalize restores the CurrentIndex invariant after external edits.
func (r *Result) Normalize() {
	r.CurrentIndex = r.clampedIndex()
}

func (r Result) clampedIndex() int {
	switch {
	case len(r.Artifacts) == 0, r.CurrentIndex < 0:
		return 0
	case r.CurrentIndex >= len(r.Artifacts):
		return len(r.Artifacts) - 1
	}
	return r.CurrentIndex
}

// Node is a unit of work in the graph.
type Node struct {
	ID       string         `json:"id" validate:"required"`
	Type     NodeType       `json:"type" validate:"required,oneof=promptInput imageGenerator imageDescriber videoGenerator"`
	Name     string         `json:"name,omitempty"`
	Model    string         `json:"model,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
	Data     Result         `json:"data"`
}

// DisplayName returns Name, or the ID when the node is unnamed.
func (n Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Variant returns the runner variant selected by the node's type and model.
func (n Node) Variant() Variant {
	return ResolveVariant(n.Type, n.Model)
}

// Output returns the value a downstream node reads from n. Prompt nodes
// expose their text, every other node its current artifact.
func (n Node) Output() (string, bool) {
	if n.Type == TypePromptInput {
		text, _ := n.Settings["text"].(string)
		text = strings.TrimSpace(text)
		return text, text != ""
	}
	a, ok := n.Data.Current()
	if !ok || strings.TrimSpace(a.Value) == "" {
		return "", false
	}
	return a.Value, true
}

// Clone returns a deep copy safe to hand out of the Store.
func (n Node) Clone() Node {
	out := n
	if n.Settings != nil {
		out.Settings = cloneMap(n.Settings)
	}
	if n.Data.Artifacts != nil {
		out.Data.Artifacts = append([]Artifact(nil), n.Data.Artifacts...)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = cloneMap(nested)
		}
		out[k] = v
	}
	return out
}

// Edge connects a source handle to a target handle.
type Edge struct {
	Source       string `json:"source" validate:"required"`
	SourceHandle Handle `json:"sourceHandle,omitempty"`
	Target       string `json:"target" validate:"required"`
	TargetHandle Handle `json:"targetHandle" validate:"required"`
}
