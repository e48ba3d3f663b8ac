package backend

import (
	"github.com/kbukum/flowgen/graph"
	"github.com/kbukum/flowgen/provider"
)

// ImageRequest asks an image model for one or more images. Image role
// fields are set only by the variants that use them.
type ImageRequest struct {
	Model        string         `json:"model"`
	Prompt       string         `json:"prompt,omitempty"`
	ImagePrompt  string         `json:"imagePrompt,omitempty"`
	ReduxImage   string         `json:"reduxImage,omitempty"`
	ControlImage string         `json:"controlImage,omitempty"`
	EditImage    string         `json:"editImage,omitempty"`
	Settings     graph.Settings `json:"settings"`
}

// ImageResponse carries the generated image URLs.
type ImageResponse struct {
	ImageURL  string   `json:"imageUrl"`
	ImageURLs []string `json:"imageUrls"`
}

// URLs returns every distinct non-empty URL, ImageURL first.
func (r ImageResponse) URLs() []string {
	seen := make(map[string]bool, len(r.ImageURLs)+1)
	var out []string
	for _, u := range append([]string{r.ImageURL}, r.ImageURLs...) {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// DescribeRequest asks a vision model to describe an image.
type DescribeRequest struct {
	ImageURL     string `json:"imageUrl"`
	ModelName    string `json:"modelName"`
	Instructions string `json:"instructions"`
}

// DescribeResponse carries the description text.
type DescribeResponse struct {
	Description string `json:"description"`
}

// VideoRequest asks a video model for one clip.
type VideoRequest struct {
	Model      string               `json:"model"`
	Prompt     string               `json:"prompt"`
	FirstFrame string               `json:"firstFrame,omitempty"`
	Settings   *graph.VideoSettings `json:"settings"`
}

// VideoResponse carries the generated video URL.
type VideoResponse struct {
	VideoURL string `json:"videoUrl"`
}

type (
	// ImageGenerator is the ImageGenerate boundary.
	ImageGenerator = provider.RequestResponse[ImageRequest, ImageResponse]
	// ImageDescriber is the DescribeImage boundary.
	ImageDescriber = provider.RequestResponse[DescribeRequest, DescribeResponse]
	// VideoGenerator is the GenerateVideo boundary.
	VideoGenerator = provider.RequestResponse[VideoRequest, VideoResponse]
)
