package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tonipenya/learn-emotion-detection/internal/config"
	"github.com/tonipenya/learn-emotion-detection/internal/facedetect"
	"github.com/tonipenya/learn-emotion-detection/internal/handlers"
	"github.com/tonipenya/learn-emotion-detection/internal/log"
	"github.com/tonipenya/learn-emotion-detection/internal/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := log.New(log.Options{
		Level: cfg.LogLevel,
		Dir:   cfg.LogDir,
		Env:   cfg.AppEnv,
		Name:  "server",
	})

	if err := model.InitRuntime(cfg.ORTLibraryPath); err != nil {
		logger.Fatalf("Failed to initialize ONNX runtime: %v", err)
	}
	defer model.ShutdownRuntime()

	logger.WithField("model", cfg.ModelPath).Info("loading model")

	classifier, err := model.NewClassifier(cfg.ModelPath, cfg.MetadataPath, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer classifier.Close()

	var detector handlers.FaceDetector
	if cfg.DetectorPath != "" {
		d, err := facedetect.NewDetector(cfg.DetectorPath, facedetect.DefaultConfig(), logger)
		if err != nil {
			logger.Fatalf("Failed to initialize face detector: %v", err)
		}
		defer d.Close()
		detector = d
	}

	router := handlers.NewRouter(handlers.NewHandler(classifier, detector, logger))

	logger.WithFields(log.Fields{
		"port":    cfg.Port,
		"classes": classifier.Info().Classes,
		"faces":   detector != nil,
	}).Info("server starting")
	logger.Info("endpoints: GET /health, POST /predict, POST /predict/image, POST /detect/image")
	logger.Infof("upload test: curl -X POST -F \"image=@face.jpg\" http://localhost:%s/predict/image", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
