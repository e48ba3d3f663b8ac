package backend

import (
	"context"
	"strings"

	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/httpclient"
)

// Request paths on the generation gateway.
const (
	PathImages       = "/v1/images/generations"
	PathDescriptions = "/v1/images/descriptions"
	PathVideos       = "/v1/videos/generations"
)

// Backend names used in logs, spans and errors.
const (
	NameImages    = "images"
	NameDescriber = "describer"
	NameVideos    = "videos"
)

// HTTPImageGenerator calls the image generation endpoint.
type HTTPImageGenerator struct {
	client *httpclient.Client
}

// NewHTTPImageGenerator creates an image generator on client.
func NewHTTPImageGenerator(client *httpclient.Client) *HTTPImageGenerator {
	return &HTTPImageGenerator{client: client}
}

func (g *HTTPImageGenerator) Name() string                     { return NameImages }
func (g *HTTPImageGenerator) IsAvailable(context.Context) bool { return true }

// Execute posts req. A response without any URL is a malformed response.
func (g *HTTPImageGenerator) Execute(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	resp, err := httpclient.PostJSON[ImageResponse](g.client, ctx, PathImages, req)
	if err != nil {
		return ImageResponse{}, httpclient.ToAppError(NameImages, err)
	}
	if len(resp.URLs()) == 0 {
		return ImageResponse{}, apperrors.MalformedResponse(NameImages, "imageUrl")
	}
	return resp, nil
}

// HTTPImageDescriber calls the image description endpoint.
type HTTPImageDescriber struct {
	client *httpclient.Client
}

// NewHTTPImageDescriber creates a describer on client.
func NewHTTPImageDescriber(client *httpclient.Client) *HTTPImageDescriber {
	return &HTTPImageDescriber{client: client}
}

func (d *HTTPImageDescriber) Name() string                     { return NameDescriber }
func (d *HTTPImageDescriber) IsAvailable(context.Context) bool { return true }

func (d *HTTPImageDescriber) Execute(ctx context.Context, req DescribeRequest) (DescribeResponse, error) {
	resp, err := httpclient.PostJSON[DescribeResponse](d.client, ctx, PathDescriptions, req)
	if err != nil {
		return DescribeResponse{}, httpclient.ToAppError(NameDescriber, err)
	}
	resp.Description = strings.TrimSpace(resp.Description)
	if resp.Description == "" {
		return DescribeResponse{}, apperrors.MalformedResponse(NameDescriber, "description")
	}
	return resp, nil
}

// HTTPVideoGenerator calls the video generation endpoint.
type HTTPVideoGenerator struct {
	client *httpclient.Client
}

// NewHTTPVideoGenerator creates a video generator on client.
func NewHTTPVideoGenerator(client *httpclient.Client) *HTTPVideoGenerator {
	return &HTTPVideoGenerator{client: client}
}

func (v *HTTPVideoGenerator) Name() string                     { return NameVideos }
func (v *HTTPVideoGenerator) IsAvailable(context.Context) bool { return true }

func (v *HTTPVideoGenerator) Execute(ctx context.Context, req VideoRequest) (VideoResponse, error) {
	resp, err := httpclient.PostJSON[VideoResponse](v.client, ctx, PathVideos, req)
	if err != nil {
		return VideoResponse{}, httpclient.ToAppError(NameVideos, err)
	}
	if resp.VideoURL == "" {
		return VideoResponse{}, apperrors.MalformedResponse(NameVideos, "videoUrl")
	}
	return resp, nil
}
