package detect

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/teslashibe/go-handcam/internal/httpc"
	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// Remote delegates hand localization to an inference sidecar over
// HTTP. The sidecar receives the raw normalized pixels and returns
// normalized boxes, so the device never loads the model itself.
type Remote struct {
	url    string
	client *http.Client
	thresh float64
}

// NewRemote creates a detector backed by the sidecar at url.
func NewRemote(url string, thresh float64) *Remote {
	return &Remote{
		url:    url,
		client: httpc.Client,
		thresh: thresh,
	}
}

type remoteRequest struct {
	Image string `json:"image"` // base64 interleaved RGB
	Side  int    `json:"side"`
}

type remoteBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

type remoteResponse struct {
	Detections []remoteBox `json:"detections"`
}

// Detect posts the image to the sidecar and parses the boxes.
func (r *Remote) Detect(img *imaging.NormalizedImage) ([]Detection, error) {
	if !img.Valid() {
		return nil, fmt.Errorf("detect: invalid input image")
	}

	body, err := json.Marshal(remoteRequest{
		Image: base64.StdEncoding.EncodeToString(img.Pix),
		Side:  img.Side,
	})
	if err != nil {
		return nil, fmt.Errorf("detect: encode request: %w", err)
	}

	resp, err := r.client.Post(r.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("detect: sidecar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect: sidecar status %d", resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("detect: decode response: %w", err)
	}

	dets := make([]Detection, 0, len(parsed.Detections))
	for _, b := range parsed.Detections {
		if b.Confidence < r.thresh {
			continue
		}
		dets = append(dets, Detection{
			X: b.X, Y: b.Y, W: b.W, H: b.H,
			Confidence: b.Confidence,
		})
	}
	return dets, nil
}

// Close is a no-op; the shared HTTP client stays alive.
func (r *Remote) Close() error { return nil }
