package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// PaddleOCR model and dictionary file names.
const (
	DetectionMobile   = "PP-OCRv5_mobile_det.onnx"
	DetectionServer   = "PP-OCRv5_server_det.onnx"
	RecognitionMobile = "PP-OCRv5_mobile_rec.onnx"
	RecognitionServer = "PP-OCRv5_server_rec.onnx"

	DictionaryPPOCRv5 = "ppocrv5_dict.txt"
)

// Directory layout below the models root.
const (
	TypeDetection    = "detection"
	TypeRecognition  = "recognition"
	TypeDictionaries = "dictionaries"

	VariantMobile = "mobile"
	VariantServer = "server"
)

// DefaultModelsDir is used relative to the project root.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models root.
const EnvModelsDir = "NAGARIKTA_MODELS_DIR"

// GetModelsDir resolves the models root: explicit value, then the
// environment, then <project root>/models, then ./models.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if env := os.Getenv(EnvModelsDir); env != "" {
		return env
	}
	if root, err := findProjectRoot(); err == nil {
		return filepath.Join(root, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveModelPath prefers <root>/<type>/<variant>/<file> (variant only for
// detection and recognition) and falls back to the flat <root>/<file>.
func ResolveModelPath(modelsDir, modelType, variant, filename string) string {
	base := GetModelsDir(modelsDir)
	if modelType != "" {
		organized := filepath.Join(base, modelType, filename)
		if variant != "" && (modelType == TypeDetection || modelType == TypeRecognition) {
			organized = filepath.Join(base, modelType, variant, filename)
		}
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}
	return filepath.Join(base, filename)
}

func variantOf(server bool) string {
	if server {
		return VariantServer
	}
	return VariantMobile
}

// DetectionModelPath returns the text detection model path.
func DetectionModelPath(modelsDir string, server bool) string {
	name := DetectionMobile
	if server {
		name = DetectionServer
	}
	return ResolveModelPath(modelsDir, TypeDetection, variantOf(server), name)
}

// RecognitionModelPath returns the text recognition model path.
func RecognitionModelPath(modelsDir string, server bool) string {
	name := RecognitionMobile
	if server {
		name = RecognitionServer
	}
	return ResolveModelPath(modelsDir, TypeRecognition, variantOf(server), name)
}

// DictionaryPath returns the path of a recognition dictionary.
func DictionaryPath(modelsDir, filename string) string {
	if filename == "" {
		filename = DictionaryPPOCRv5
	}
	return ResolveModelPath(modelsDir, TypeDictionaries, "", filename)
}

// ValidateModelExists reports a missing model file.
func ValidateModelExists(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("model file not found: %s", path)
	}
	return nil
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root (go.mod not found)")
		}
		dir = parent
	}
}
