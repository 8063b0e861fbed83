package handlers

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonipenya/learn-emotion-detection/internal/facedetect"
	"github.com/tonipenya/learn-emotion-detection/internal/log"
	"github.com/tonipenya/learn-emotion-detection/internal/model"
)

type fakePredictor struct {
	md     model.Metadata
	err    error
	images int
}

func (f *fakePredictor) Info() model.Metadata { return f.md }

func (f *fakePredictor) Predict(input []float32) (*model.PredictionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return model.NewPredictionResponse([]float32{0.2, 0.8}, f.md.Classes), nil
}

func (f *fakePredictor) PredictImage(img image.Image) (*model.PredictionResponse, error) {
	f.images++
	return f.Predict(nil)
}

type fakeDetector struct{}

func (fakeDetector) Detect(img image.Image) ([]facedetect.Detection, error) {
	return []facedetect.Detection{{Box: facedetect.Box{X1: 10, Y1: 10}, Score: 0.9}}, nil
}

func newTestRouter(p *fakePredictor, d FaceDetector) http.Handler {
	return NewRouter(NewHandler(p, d, log.Discard()))
}

func defaultPredictor() *fakePredictor {
	return &fakePredictor{md: model.Metadata{
		InputShape: []int64{1, 1, 2, 2},
		Classes:    []string{"neutral", "happiness"},
	}}
}

func imageUpload(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, "face.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(fw, image.NewGray(image.Rect(0, 0, 8, 8))))
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(defaultPredictor(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc")

	rec := httptest.NewRecorder()
	newTestRouter(defaultPredictor(), nil).ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"ok", `{"image":[0,0,0,0]}`, nil, http.StatusOK},
		{"invalid json", `{"image":`, nil, http.StatusBadRequest},
		{"wrong size", `{"image":[0,0]}`, nil, http.StatusBadRequest},
		{"inference error", `{"image":[0,0,0,0]}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultPredictor()
			p.err = tt.err

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(tt.body))
			newTestRouter(p, nil).ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				var resp model.PredictionResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "happiness", resp.Class)
				assert.Equal(t, 1, resp.ClassIndex)
			}
		})
	}
}

func TestPredictMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(defaultPredictor(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPredictFromImage(t *testing.T) {
	p := defaultPredictor()
	body, contentType := imageUpload(t, "image")

	req := httptest.NewRequest(http.MethodPost, "/predict/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(p, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, p.images)
}

func TestPredictFromImageBadRequests(t *testing.T) {
	body, contentType := imageUpload(t, "file")
	req := httptest.NewRequest(http.MethodPost, "/predict/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(defaultPredictor(), nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/predict/image", bytes.NewBufferString("nope"))
	rec = httptest.NewRecorder()
	newTestRouter(defaultPredictor(), nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectFromImage(t *testing.T) {
	body, contentType := imageUpload(t, "image")
	req := httptest.NewRequest(http.MethodPost, "/detect/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(defaultPredictor(), fakeDetector{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Faces, 1)
	assert.EqualValues(t, 0.9, resp.Faces[0].Score)
}

func TestDetectDisabled(t *testing.T) {
	body, contentType := imageUpload(t, "image")
	req := httptest.NewRequest(http.MethodPost, "/detect/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(defaultPredictor(), nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	newTestRouter(defaultPredictor(), nil).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
