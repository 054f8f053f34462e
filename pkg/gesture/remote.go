package gesture

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/teslashibe/go-handcam/internal/httpc"
	"github.com/teslashibe/go-handcam/pkg/detect"
	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// Remote delegates gesture classification to an inference sidecar
// over HTTP, sending the normalized frame plus the detection boxes.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote creates a recognizer backed by the sidecar at url.
func NewRemote(url string) *Remote {
	return &Remote{url: url, client: httpc.Client}
}

type remoteRequest struct {
	Image      string      `json:"image"` // base64 interleaved RGB
	Side       int         `json:"side"`
	Detections []remoteBox `json:"detections"`
}

type remoteBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type remoteResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type remoteResponse struct {
	Results []remoteResult `json:"results"`
}

// Recognize posts the frame and boxes to the sidecar.
func (r *Remote) Recognize(img *imaging.NormalizedImage, dets []detect.Detection) ([]Result, error) {
	if !img.Valid() {
		return nil, fmt.Errorf("gesture: invalid input image")
	}

	req := remoteRequest{
		Image: base64.StdEncoding.EncodeToString(img.Pix),
		Side:  img.Side,
	}
	for _, d := range dets {
		req.Detections = append(req.Detections, remoteBox{X: d.X, Y: d.Y, W: d.W, H: d.H})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("gesture: encode request: %w", err)
	}

	resp, err := r.client.Post(r.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gesture: sidecar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gesture: sidecar status %d", resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("gesture: decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		results = append(results, Result{Label: res.Label, Score: clamp01(res.Score)})
	}
	return results, nil
}

// Close is a no-op; the shared HTTP client stays alive.
func (r *Remote) Close() error { return nil }
