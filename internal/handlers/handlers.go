package handlers

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/tonipenya/learn-emotion-detection/internal/facedetect"
	"github.com/tonipenya/learn-emotion-detection/internal/log"
	"github.com/tonipenya/learn-emotion-detection/internal/model"
)

const maxUploadSize = 10 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FaceDetector is satisfied by *facedetect.Detector.
type FaceDetector interface {
	Detect(img image.Image) ([]facedetect.Detection, error)
}

type Handler struct {
	predictor model.Predictor
	detector  FaceDetector
	log       *logrus.Logger
}

// NewHandler builds the API handlers. detector may be nil, in which case
// face detection answers 503.
func NewHandler(predictor model.Predictor, detector FaceDetector, logger *logrus.Logger) *Handler {
	return &Handler{
		predictor: predictor,
		detector:  detector,
		log:       logger,
	}
}

type DetectionResponse struct {
	Faces []facedetect.Detection `json:"faces"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	entry := log.WithRequestID(r.Context(), h.log)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req model.PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	md := h.predictor.Info()
	if expected := md.InputSize(); len(req.Image) != expected {
		http.Error(w, fmt.Sprintf("Expected %d values, got %d", expected, len(req.Image)),
			http.StatusBadRequest)
		return
	}

	result, err := h.predictor.Predict(req.Image)
	if err != nil {
		entry.WithError(err).Error("prediction failed")
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	entry := log.WithRequestID(r.Context(), h.log)

	img, ok := h.readImage(w, r, entry)
	if !ok {
		return
	}

	result, err := h.predictor.PredictImage(img)
	if err != nil {
		entry.WithError(err).Error("prediction failed")
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	entry.WithFields(logrus.Fields{
		"class":      result.Class,
		"confidence": result.Confidence,
	}).Info("image classified")

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DetectFromImage(w http.ResponseWriter, r *http.Request) {
	entry := log.WithRequestID(r.Context(), h.log)

	if h.detector == nil {
		http.Error(w, "Face detection is not enabled", http.StatusServiceUnavailable)
		return
	}

	img, ok := h.readImage(w, r, entry)
	if !ok {
		return
	}

	faces, err := h.detector.Detect(img)
	if err != nil {
		entry.WithError(err).Error("face detection failed")
		http.Error(w, "Face detection failed", http.StatusInternalServerError)
		return
	}
	if faces == nil {
		faces = []facedetect.Detection{}
	}

	writeJSON(w, http.StatusOK, DetectionResponse{Faces: faces})
}

// readImage decodes the multipart "image" field. On failure it has already
// written the response.
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request, entry *logrus.Entry) (image.Image, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image format. Supported: JPEG, PNG", http.StatusBadRequest)
		return nil, false
	}

	entry.WithFields(logrus.Fields{
		"file":   header.Filename,
		"size":   header.Size,
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("received image")

	return img, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
