package graph

import (
	"sync"
	"testing"

	apperrors "github.com/kbukum/flowgen/errors"
)

func node(id string, t NodeType, model string) Node {
	return Node{ID: id, Type: t, Model: model}
}

func TestIsValidEdge(t *testing.T) {
	prompt := node("p", TypePromptInput, "")
	image := node("img", TypeImageGenerator, ModelSeedream)
	canny := node("canny", TypeImageGenerator, ModelFluxCanny)
	edit := node("edit", TypeImageGenerator, ModelFluxKontext)
	redux := node("redux", TypeImageGenerator, ModelFluxRedux)
	video := node("vid", TypeVideoGenerator, ModelPixverse)
	describer := node("desc", TypeImageDescriber, ModelGemini)

	tests := []struct {
		name   string
		source Node
		target Node
		handle Handle
		want   bool
	}{
		{"prompt to video prompt", prompt, video, HandlePrompt, true},
		{"prompt to video negative", prompt, video, HandleNegativePrompt, true},
		{"prompt to video first frame", prompt, video, HandleFirstFrame, false},
		{"prompt to image prompt", prompt, image, HandlePrompt, true},
		{"prompt to image imagePrompt", prompt, image, HandleImagePrompt, true},
		{"prompt to canny imagePrompt", prompt, canny, HandleImagePrompt, false},
		{"prompt to edit imagePrompt", prompt, edit, HandleImagePrompt, false},
		{"prompt to canny prompt", prompt, canny, HandlePrompt, true},
		{"prompt to describer image", prompt, describer, HandleImage, false},
		{"prompt to canny control", prompt, canny, HandleControlImage, false},
		{"image to canny control", image, canny, HandleControlImage, true},
		{"image to edit", image, edit, HandleEditImage, true},
		{"image to redux", image, redux, HandleReduxImage, true},
		{"video to redux", video, redux, HandleReduxImage, false},
		{"describer to edit", describer, edit, HandleEditImage, false},
		{"describer to image prompt", describer, image, HandlePrompt, true},
		{"image to video first frame", image, video, HandleFirstFrame, true},
		{"image to describer", image, describer, HandleImage, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEdge(tt.source, HandleText, tt.target, tt.handle); got != tt.want {
				t.Errorf("IsValidEdge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveVariant(t *testing.T) {
	tests := []struct {
		t     NodeType
		model string
		want  Variant
	}{
		{TypeImageGenerator, ModelSeedream, VariantDefault},
		{TypeImageGenerator, "", VariantDefault},
		{TypeImageGenerator, "some/unknown-model", VariantDefault},
		{TypeImageGenerator, ModelFluxPro, VariantFlux},
		{TypeImageGenerator, "black-forest-labs/flux-schnell", VariantFlux},
		{TypeImageGenerator, "acme/Flux-Canny-Dev", VariantFluxCanny},
		{TypeImageGenerator, ModelFluxKontext, VariantFluxEdit},
		{TypeImageGenerator, ModelFluxRedux, VariantFluxRedux},
		{TypeVideoGenerator, "anything", VariantVideo},
		{TypeImageDescriber, "", VariantDescriber},
		{TypePromptInput, "", VariantPrompt},
	}
	for _, tt := range tests {
		if got := ResolveVariant(tt.t, tt.model); got != tt.want {
			t.Errorf("ResolveVariant(%s, %q) = %s, want %s", tt.t, tt.model, got, tt.want)
		}
	}
}

func TestResult_Append(t *testing.T) {
	var r Result
	if _, ok := r.Current(); ok || r.CurrentIndex != 0 {
		t.Fatal("empty result must have no current artifact and index 0")
	}
	r.Append(Artifact{Kind: ArtifactImage, Value: "a"})
	r.Append(Artifact{Kind: ArtifactImage, Value: "b"}, Artifact{Kind: ArtifactImage, Value: "c"})
	if len(r.Artifacts) != 3 || r.CurrentIndex != 2 {
		t.Fatalf("expected 3 artifacts at index 2, got %d at %d", len(r.Artifacts), r.CurrentIndex)
	}
	if a, _ := r.Current(); a.Value != "c" {
		t.Fatalf("expected current c, got %s", a.Value)
	}
}

func TestResult_Normalize(t *testing.T) {
	r := Result{Artifacts: []Artifact{{Value: "a"}}, CurrentIndex: 5}
	r.Normalize()
	if r.CurrentIndex != 0 {
		t.Fatalf("expected clamp to 0, got %d", r.CurrentIndex)
	}
	r = Result{CurrentIndex: 3}
	r.Normalize()
	if r.CurrentIndex != 0 {
		t.Fatalf("expected 0 for empty, got %d", r.CurrentIndex)
	}
}

func TestNode_Output(t *testing.T) {
	p := Node{ID: "p", Type: TypePromptInput, Settings: map[string]any{"text": "  a red fox  "}}
	if v, ok := p.Output(); !ok || v != "a red fox" {
		t.Fatalf("unexpected prompt output %q %v", v, ok)
	}
	empty := Node{ID: "p", Type: TypePromptInput, Settings: map[string]any{"text": "   "}}
	if _, ok := empty.Output(); ok {
		t.Fatal("blank prompt must have no output")
	}
	img := Node{ID: "i", Type: TypeImageGenerator}
	if _, ok := img.Output(); ok {
		t.Fatal("image node without artifacts must have no output")
	}
	img.Data.Append(Artifact{Kind: ArtifactImage, Value: "https://x/1.png"})
	if v, ok := img.Output(); !ok || v != "https://x/1.png" {
		t.Fatalf("unexpected image output %q", v)
	}
}

func TestResolveSettings_Defaults(t *testing.T) {
	s, err := ResolveSettings(node("i", TypeImageGenerator, ""), nil)
	if err != nil {
		t.Fatal(err)
	}
	img := s.(*ImageSettings)
	if img.Size != "2K" || img.Width != 2048 || img.AspectRatio != "4:3" || !img.EnhancePrompt || img.SequentialImageGeneration != "disabled" {
		t.Fatalf("unexpected defaults %+v", img)
	}

	s, _ = ResolveSettings(node("v", TypeVideoGenerator, ""), nil)
	v := s.(*VideoSettings)
	if v.AspectRatio != "16:9" || v.Duration != 5 || v.Quality != "720p" || v.Seed != 597311 || v.MotionMode != "normal" {
		t.Fatalf("unexpected video defaults %+v", v)
	}

	s, _ = ResolveSettings(node("f", TypeImageGenerator, ModelFluxPro), nil)
	if f := s.(*FluxSettings); f.Seed != nil || !f.PromptUpsampling || f.OutputFormat != "png" {
		t.Fatalf("unexpected flux defaults %+v", f)
	}
}

func TestResolveSettings_MergesPersisted(t *testing.T) {
	n := node("r", TypeImageGenerator, ModelFluxRedux)
	// JSON-decoded numbers arrive as float64
	n.Settings = map[string]any{"outputQuality": float64(95), "aspectRatio": "16:9", "unknown": true}
	s, err := ResolveSettings(n, nil)
	if err != nil {
		t.Fatal(err)
	}
	r := s.(*FluxReduxSettings)
	if r.OutputQuality != 95 || r.AspectRatio != "16:9" {
		t.Fatalf("persisted values not merged: %+v", r)
	}
	if r.NumInferenceSteps != 28 || r.OutputFormat != "webp" || r.Guidance != 3 {
		t.Fatalf("defaults lost: %+v", r)
	}
}

func TestResolveSettings_Seeds(t *testing.T) {
	seeds := func(int) int { return 7 }

	s, _ := ResolveSettings(node("c", TypeImageGenerator, ModelFluxCanny), seeds)
	if got := s.(*FluxCannySettings).Seed; got != 7 {
		t.Fatalf("expected drawn seed 7, got %d", got)
	}

	n := node("c", TypeImageGenerator, ModelFluxCanny)
	n.Settings = map[string]any{"seed": 123}
	s, _ = ResolveSettings(n, seeds)
	if got := s.(*FluxCannySettings).Seed; got != 123 {
		t.Fatalf("persisted seed must win, got %d", got)
	}

	s, _ = ResolveSettings(node("v", TypeVideoGenerator, ""), StaticSeeds)
	if got := s.(*VideoSettings).Seed; got != 597311 {
		t.Fatalf("static seeds must keep default, got %d", got)
	}
}

func TestResolveSettings_BadType(t *testing.T) {
	n := node("v", TypeVideoGenerator, "")
	n.Settings = map[string]any{"duration": "long"}
	if _, err := ResolveSettings(n, nil); err == nil {
		t.Fatal("expected decode error")
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	err := s.Load(Snapshot{
		Nodes: []Node{
			{ID: "p", Type: TypePromptInput, Settings: map[string]any{"text": "fox"}},
			{ID: "img", Type: TypeImageGenerator},
			{ID: "vid", Type: TypeVideoGenerator},
		},
		Edges: []Edge{{Source: "p", SourceHandle: HandleText, Target: "img", TargetHandle: HandlePrompt}},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestStore_Connect(t *testing.T) {
	s := newTestStore(t)

	err := s.Connect(Edge{Source: "p", Target: "vid", TargetHandle: HandleFirstFrame})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidEdge) {
		t.Fatalf("expected invalid edge, got %v", err)
	}
	if err := s.Connect(Edge{Source: "img", Target: "vid", TargetHandle: HandleFirstFrame}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	err = s.Connect(Edge{Source: "img", Target: "vid", TargetHandle: HandleFirstFrame})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidEdge) {
		t.Fatalf("expected duplicate handle rejection, got %v", err)
	}
	if err := s.Connect(Edge{Source: "nope", Target: "vid", TargetHandle: HandlePrompt}); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if got := s.EdgesInto("vid"); len(got) != 1 || got[0].Source != "img" {
		t.Fatalf("unexpected edges into vid: %+v", got)
	}
	if got := s.EdgesFrom("img"); len(got) != 1 {
		t.Fatalf("unexpected edges from img: %+v", got)
	}
}

func TestStore_LoadRejectsBadGraph(t *testing.T) {
	s := NewStore()
	err := s.Load(Snapshot{Nodes: []Node{{ID: "a", Type: TypePromptInput}, {ID: "a", Type: TypePromptInput}}})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
	err = s.Load(Snapshot{
		Nodes: []Node{{ID: "a", Type: TypePromptInput}},
		Edges: []Edge{{Source: "a", Target: "b", TargetHandle: HandlePrompt}},
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidEdge) {
		t.Fatalf("expected dangling edge rejection, got %v", err)
	}

	nodes := []Node{
		{ID: "p", Type: TypePromptInput},
		{ID: "p2", Type: TypePromptInput},
		{ID: "v", Type: TypeVideoGenerator},
	}
	tests := []struct {
		name  string
		edges []Edge
	}{
		{"text into firstFrame", []Edge{
			{Source: "p", SourceHandle: HandleText, Target: "v", TargetHandle: HandleFirstFrame},
		}},
		{"handle connected twice", []Edge{
			{Source: "p", SourceHandle: HandleText, Target: "v", TargetHandle: HandlePrompt},
			{Source: "p2", SourceHandle: HandleText, Target: "v", TargetHandle: HandlePrompt},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			err := s.Load(Snapshot{Nodes: nodes, Edges: tc.edges})
			if !apperrors.IsCode(err, apperrors.ErrCodeInvalidEdge) {
				t.Fatalf("expected INVALID_EDGE, got %v", err)
			}
			if len(s.Edges()) != 0 || len(s.Snapshot().Nodes) != 0 {
				t.Fatal("a rejected load must leave the store unchanged")
			}
		})
	}
}

func TestStore_GetNodeReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	n, _ := s.GetNode("p")
	n.Settings["text"] = "changed"
	n.Data.Append(Artifact{Value: "x"})

	again, _ := s.GetNode("p")
	if again.Settings["text"] != "fox" || len(again.Data.Artifacts) != 0 {
		t.Fatalf("store mutated through copy: %+v", again)
	}
}

func TestStore_UpdateNodeNotifies(t *testing.T) {
	s := newTestStore(t)
	var seen []Node
	s.Listen(func(n Node) { seen = append(seen, n) })

	updated, err := s.UpdateNode("img", func(n *Node) { n.Data.Generating = true })
	if err != nil || !updated.Data.Generating {
		t.Fatalf("UpdateNode: %+v, %v", updated, err)
	}
	if len(seen) != 1 || seen[0].ID != "img" {
		t.Fatalf("listener not notified: %+v", seen)
	}
	if _, err := s.UpdateNode("missing", func(*Node) {}); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.UpdateNode("img", func(n *Node) {
				n.Data.Append(Artifact{Kind: ArtifactImage, Value: "u"})
			})
		}()
	}
	wg.Wait()

	n, _ := s.GetNode("img")
	if len(n.Data.Artifacts) != 50 || n.Data.CurrentIndex != 49 {
		t.Fatalf("expected 50 artifacts at 49, got %d at %d", len(n.Data.Artifacts), n.Data.CurrentIndex)
	}
}

func TestStore_SnapshotOrder(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddNode(Node{ID: "d", Type: TypeImageDescriber}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddNode(Node{ID: "d", Type: TypeImageDescriber}); !apperrors.IsCode(err, apperrors.ErrCodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	snap := s.Snapshot()
	var ids []string
	for _, n := range snap.Nodes {
		ids = append(ids, n.ID)
	}
	if len(ids) != 4 || ids[0] != "p" || ids[3] != "d" {
		t.Fatalf("unexpected order %v", ids)
	}
}
