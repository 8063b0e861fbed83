package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tonipenya/learn-emotion-detection/internal/ferplus"
	"github.com/tonipenya/learn-emotion-detection/internal/log"
	"github.com/tonipenya/learn-emotion-detection/internal/metrics"
	"github.com/tonipenya/learn-emotion-detection/internal/model"
)

func summaryCmd() *cobra.Command {
	var split *string
	var size *int

	cmd := cobra.Command{
		Use:   "summary CSV IMG_ROOT",
		Short: "load a split and report its size and majority-vote class counts",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			sp, err := ferplus.ParseSplit(*split)
			fail(err)

			ds, err := ferplus.New(args[0], args[1], sp,
				ferplus.WithImageSize(*size), ferplus.WithLogger(logger))
			fail(err)

			var counts [ferplus.NumClasses]int
			for _, l := range ds.Labels() {
				counts[l]++
			}

			fields := log.Fields{"samples": ds.Len()}
			for i, c := range ferplus.Classes {
				fields[c] = counts[i]
			}
			logger.WithFields(fields).Info("split summary")
		},
	}

	split = cmd.Flags().String("split", string(ferplus.Training), "Training, PublicTest or PrivateTest")
	size = cmd.Flags().Int("size", ferplus.DefaultImageSize, "square image size after resizing")

	return &cmd
}

func predictCmd() *cobra.Command {
	var out, modelPath, metadataPath *string

	cmd := cobra.Command{
		Use:   "predict IMG_DIR",
		Short: "classify every image in a directory and write filename,prediction CSV",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if *modelPath == "" {
				*modelPath = cfg.ModelPath
			}
			if *metadataPath == "" {
				*metadataPath = cfg.MetadataPath
			}

			fail(model.InitRuntime(cfg.ORTLibraryPath))
			defer model.ShutdownRuntime()

			classifier, err := model.NewClassifier(*modelPath, *metadataPath, logger)
			fail(err)
			defer classifier.Close()

			fs := afero.NewOsFs()
			rows, err := predictDir(fs, args[0], classifier)
			fail(err)
			fail(ferplus.WritePredictions(fs, *out, rows))

			logger.WithFields(log.Fields{
				"images": len(rows),
				"out":    *out,
			}).Info("wrote predictions")
		},
	}

	out = cmd.Flags().String("out", "predictions.csv", "output CSV path")
	modelPath = cmd.Flags().String("model", "", "ONNX model path (defaults to MODEL_PATH)")
	metadataPath = cmd.Flags().String("metadata", "", "model metadata path (defaults to METADATA_PATH)")

	return &cmd
}

func predictDir(fs afero.Fs, dir string, p model.Predictor) ([]*ferplus.Prediction, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	var rows []*ferplus.Prediction
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}

		img, err := decode(fs, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		res, err := p.PredictImage(img)
		if err != nil {
			return nil, errors.Wrap(err, e.Name())
		}
		rows = append(rows, &ferplus.Prediction{Filename: e.Name(), Prediction: res.ClassIndex})
	}
	return rows, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func decode(fs afero.Fs, path string) (image.Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

func metricsCmd() *cobra.Command {
	var split *string

	cmd := cobra.Command{
		Use:   "metrics CSV PREDICTIONS",
		Short: "score a predictions CSV against the majority vote of a split",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			sp, err := ferplus.ParseSplit(*split)
			fail(err)

			report, err := score(afero.NewOsFs(), args[0], args[1], sp)
			fail(err)

			buf, err := jsoniter.MarshalIndent(report, "", "  ")
			fail(err)
			fmt.Println(string(buf))
		},
	}

	split = cmd.Flags().String("split", string(ferplus.PrivateTest), "Training, PublicTest or PrivateTest")

	return &cmd
}

func score(fs afero.Fs, csvPath, predsPath string, split ferplus.Split) (metrics.Report, error) {
	annotations, err := ferplus.ReadAnnotations(fs, csvPath)
	if err != nil {
		return nil, err
	}
	preds, err := ferplus.ReadPredictions(fs, predsPath)
	if err != nil {
		return nil, err
	}

	pairs := ferplus.Align(ferplus.FilterAnnotations(annotations, split), preds)
	logger.WithFields(log.Fields{
		"scored":  len(pairs.True),
		"missing": pairs.Missing,
		"unvoted": pairs.Unvoted,
	}).Info("aligned predictions")

	return metrics.Calculate(pairs.True, pairs.Pred, ferplus.ClassNames())
}
