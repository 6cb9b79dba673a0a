package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tunecast/model"
)

// DefaultOEmbedURL 是 YouTube 的 oEmbed 端点，不需要 API key
const DefaultOEmbedURL = "https://www.youtube.com/oembed"

// Client 通过 oEmbed 查询视频的标题和作者
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient 创建元数据客户端
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		endpoint:   DefaultOEmbedURL,
	}
}

// NewClientWithEndpoint 指定 oEmbed 端点创建客户端
func NewClientWithEndpoint(endpoint string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		endpoint:   endpoint,
	}
}

// Resolve 查询视频元数据。查询失败时返回错误，调用方可退回 Placeholder。
func (c *Client) Resolve(ctx context.Context, videoID string) (model.Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return model.Track{}, err
	}
	q := req.URL.Query()
	q.Add("url", "https://www.youtube.com/watch?v="+videoID)
	q.Add("format", "json")
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Track{}, fmt.Errorf("oembed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Track{}, fmt.Errorf("oembed returned status %d for video %s", resp.StatusCode, videoID)
	}

	var payload struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Track{}, fmt.Errorf("decode oembed response: %w", err)
	}

	return model.Track{
		ID:     videoID,
		Title:  payload.Title,
		Author: payload.AuthorName,
	}, nil
}

// Placeholder 在元数据不可用时生成占位曲目信息
func Placeholder(videoID string) model.Track {
	return model.Track{
		ID:     videoID,
		Title:  "Video " + videoID,
		Author: "Unknown Artist",
	}
}
