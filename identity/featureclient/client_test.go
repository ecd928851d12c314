package featureclient_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/identity/featureclient"
	"github.com/classroom-devices/loanledger/shared/core"
)

func pngStill(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(width, height, color.NRGBA{R: 200, G: 180, B: 160, A: 255}), imaging.PNG))

	return buf.Bytes()
}

func Test_Normalize_ScalesDownToFitAndReencodesAsJPEG(t *testing.T) {
	// act
	normalized, err := featureclient.Normalize(pngStill(t, 1280, 960))

	// assert
	require.NoError(t, err)
	decoded, err := imaging.Decode(bytes.NewReader(normalized))
	require.NoError(t, err)
	assert.Equal(t, 640, decoded.Bounds().Dx())
	assert.Equal(t, 480, decoded.Bounds().Dy())
	assert.Equal(t, []byte{0xff, 0xd8}, normalized[:2], "JPEG magic")
}

func Test_Normalize_KeepsSmallImagesAtTheirSize(t *testing.T) {
	normalized, err := featureclient.Normalize(pngStill(t, 320, 200))

	require.NoError(t, err)
	decoded, err := imaging.Decode(bytes.NewReader(normalized))
	require.NoError(t, err)
	assert.Equal(t, 320, decoded.Bounds().Dx())
}

func Test_Extract_SendsADataURIAndReturnsTheEmbedding(t *testing.T) {
	// arrange
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-embedding", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.25,-0.5,0.125]}`))
	}))
	defer server.Close()

	client, err := featureclient.NewClient(server.URL + "/")
	require.NoError(t, err)

	// act
	vector, err := client.Extract(context.Background(), pngStill(t, 100, 100))

	// assert
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -0.5, 0.125}, vector)
	require.True(t, strings.HasPrefix(received["image"], "data:image/jpeg;base64,"))
	_, decodeErr := base64.StdEncoding.DecodeString(strings.TrimPrefix(received["image"], "data:image/jpeg;base64,"))
	assert.NoError(t, decodeErr)
}

func Test_Extract_NoFaceIsUnresolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"no face found"}`))
	}))
	defer server.Close()

	client, err := featureclient.NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Extract(context.Background(), pngStill(t, 50, 50))

	assert.ErrorIs(t, err, core.ErrUnresolved)
}

func Test_Extract_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := featureclient.NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Extract(context.Background(), pngStill(t, 50, 50))

	assert.ErrorIs(t, err, featureclient.ErrServiceUnavailable)
	_, isFailure := core.AsFailure(err)
	assert.False(t, isFailure, "the resolver turns transport problems into ExternalServiceUnavailable")
}

func Test_Extract_TimesOut(t *testing.T) {
	// arrange
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client, err := featureclient.NewClient(server.URL, featureclient.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	// act
	start := time.Now()
	_, err = client.Extract(context.Background(), pngStill(t, 50, 50))

	// assert
	assert.ErrorIs(t, err, featureclient.ErrServiceUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func Test_Extract_UndecodableImageIsAValidationError(t *testing.T) {
	client, err := featureclient.NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = client.Extract(context.Background(), []byte("not an image"))

	assert.ErrorIs(t, err, core.ErrValidation)
}

func Test_NewClient_RequiresBaseURL(t *testing.T) {
	_, err := featureclient.NewClient("  ")

	assert.ErrorIs(t, err, featureclient.ErrEmptyBaseURL)
}
