// Package featureclient calls the external feature extraction service that turns a still image
// into a face feature vector.
//
// Images are normalized before upload: EXIF orientation applied, scaled down to fit 640x640 and
// re-encoded as JPEG. The service answers {"embedding":[...]} or, with status 400,
// {"error":"..."} when it finds no face.
package featureclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	embeddingPath    = "/get-embedding"
	dataURIPrefix    = "data:image/jpeg;base64,"
	maxEdgePixels    = 640
	jpegQuality      = 90
	defaultTimeout   = 5 * time.Second
	detailNoFace     = "no face detected"
	detailBadImage   = "image could not be decoded"
	detailNoResponse = "feature service returned no embedding"
)

var (
	// ErrServiceUnavailable is returned for transport errors, timeouts and non-4xx failures.
	ErrServiceUnavailable = errors.New("feature extraction service unavailable")

	ErrEmptyBaseURL = errors.New("feature service base URL must not be empty")
)

type embeddingRequest struct {
	Image string `json:"image"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

// Client talks to the feature extraction service.
type Client struct {
	baseURL string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request. Non-positive values keep the default of five seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	c := &Client{baseURL: baseURL, timeout: defaultTimeout}
	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Extract normalizes image and returns the feature vector the service computes for it.
// An undecodable image is a validation failure, a picture without a face is unresolved.
func (c *Client) Extract(ctx context.Context, image []byte) ([]float64, error) {
	normalized, err := Normalize(image)
	if err != nil {
		return nil, core.ValidationFailed(detailBadImage)
	}

	timeout, err := c.effectiveTimeout(ctx)
	if err != nil {
		return nil, errors.Join(ErrServiceUnavailable, err)
	}

	agent := fiber.Post(c.baseURL + embeddingPath).
		Timeout(timeout).
		JSONEncoder(jsoniter.ConfigCompatibleWithStandardLibrary.Marshal).
		JSON(embeddingRequest{Image: dataURIPrefix + base64.StdEncoding.EncodeToString(normalized)})

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{ErrServiceUnavailable}, errs...)...)
	}

	return decodeResponse(status, body)
}

func (c *Client) effectiveTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if timeout <= 0 {
		return 0, context.DeadlineExceeded
	}

	return timeout, nil
}

func decodeResponse(status int, body []byte) ([]float64, error) {
	var response embeddingResponse
	decodeErr := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &response)

	switch {
	case status == http.StatusOK && decodeErr == nil && len(response.Embedding) > 0:
		return response.Embedding, nil
	case status == http.StatusOK:
		return nil, errors.Join(ErrServiceUnavailable, errors.New(detailNoResponse))
	case status >= 400 && status < 500 && decodeErr == nil && response.Error != "":
		return nil, &core.Failure{Kind: core.KindUnresolved, Detail: detailNoFace}
	default:
		return nil, errors.Join(ErrServiceUnavailable, errors.New("status "+strconv.Itoa(status)))
	}
}

// Normalize decodes a JPEG or PNG still, applies its EXIF orientation, scales it down to fit
// 640x640 and re-encodes it as JPEG.
func Normalize(image []byte) ([]byte, error) {
	decoded, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	bounds := decoded.Bounds()
	if bounds.Dx() > maxEdgePixels || bounds.Dy() > maxEdgePixels {
		decoded = imaging.Fit(decoded, maxEdgePixels, maxEdgePixels, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
