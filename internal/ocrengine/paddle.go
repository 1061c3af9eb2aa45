package ocrengine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
	"github.com/MeKo-Tech/nagarikta/internal/mempool"
	"github.com/MeKo-Tech/nagarikta/internal/models"
	"github.com/MeKo-Tech/nagarikta/internal/onnx"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Detection input normalization, applied to B, G, R planes in that order.
var (
	detMean = [3]float32{0.485, 0.456, 0.406}
	detStd  = [3]float32{0.229, 0.224, 0.225}
)

const recMinWidth = 320

// Paddle runs PP-OCRv5 text detection and recognition models through
// ONNX Runtime.
type Paddle struct {
	cfg     PaddleConfig
	det     *onnx.Session
	rec     *onnx.Session
	charset *Charset
}

// NewPaddle loads the dictionary and both models. Empty paths resolve to
// the mobile detection and server recognition models.
func NewPaddle(cfg PaddleConfig) (*Paddle, error) {
	detPath := cfg.DetModel
	if detPath == "" {
		detPath = models.DetectionModelPath(cfg.ModelsDir, false)
	}
	recPath := cfg.RecModel
	if recPath == "" {
		recPath = models.RecognitionModelPath(cfg.ModelsDir, true)
	}
	dictPath := cfg.DictPath
	if dictPath == "" {
		dictPath = models.DictionaryPath(cfg.ModelsDir, "")
	}
	if cfg.MaxSideLen <= 0 || cfg.RecHeight <= 0 {
		return nil, errors.New("paddle: max side length and recognition height must be positive")
	}

	cs, err := LoadCharset(dictPath)
	if err != nil {
		return nil, err
	}
	det, err := onnx.NewSession(onnx.SessionConfig{ModelPath: detPath, NumThreads: cfg.NumThreads, GPU: cfg.GPU})
	if err != nil {
		return nil, fmt.Errorf("detection model: %w", err)
	}
	rec, err := onnx.NewSession(onnx.SessionConfig{ModelPath: recPath, NumThreads: cfg.NumThreads, GPU: cfg.GPU})
	if err != nil {
		_ = det.Close()
		return nil, fmt.Errorf("recognition model: %w", err)
	}
	return &Paddle{cfg: cfg, det: det, rec: rec, charset: cs}, nil
}

// Name implements Engine.
func (p *Paddle) Name() string { return EnginePaddle }

// Recognize implements Engine.
func (p *Paddle) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("paddle: empty image")
	}
	src := imgproc.ToNRGBA(img)
	ow, oh := src.Rect.Dx(), src.Rect.Dy()

	quads, err := p.detect(src)
	if err != nil {
		return nil, err
	}
	slog.Debug("paddle detection", "regions", len(quads))

	out := make([]Detection, 0, len(quads))
	for _, q := range quads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, conf, err := p.recognize(cropQuad(src, q))
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		out = append(out, Detection{Polygon: q, Text: text, Confidence: conf})
	}
	slog.Debug("paddle recognition", "lines", len(out), "width", ow, "height", oh)
	return out, nil
}

func (p *Paddle) detect(src *image.NRGBA) ([][4]utils.Point, error) {
	ow, oh := src.Rect.Dx(), src.Rect.Dy()
	rw, rh := detInputSize(ow, oh, p.cfg.MaxSideLen)
	tensor, buf, err := detTensor(src, rw, rh)
	if err != nil {
		return nil, err
	}
	prob, shape, err := p.det.Run(tensor)
	mempool.PutFloat32(buf)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	if len(shape) != 4 || shape[1] != 1 {
		return nil, fmt.Errorf("unexpected detection output shape %v", shape)
	}
	mw, mh := int(shape[3]), int(shape[2])
	params := dbParams{thresh: p.cfg.DBThresh, boxThresh: p.cfg.DBBoxThresh, unclip: p.cfg.UnclipRatio, minSize: 3}
	regions := dbBoxes(prob, mw, mh, params)
	quads := make([][4]utils.Point, 0, len(regions))
	for _, r := range regions {
		quads = append(quads, scaleQuad(r.quad, mw, mh, ow, oh))
	}
	return quads, nil
}

func (p *Paddle) recognize(crop image.Image) (string, float64, error) {
	if crop.Bounds().Empty() {
		return "", 0, nil
	}
	tensor, buf, err := recTensor(crop, p.cfg.RecHeight, p.cfg.RecMaxWidth)
	if err != nil {
		return "", 0, err
	}
	scores, shape, err := p.rec.Run(tensor)
	mempool.PutFloat32(buf)
	if err != nil {
		return "", 0, fmt.Errorf("recognition: %w", err)
	}
	return decodeLine(scores, shape, p.charset)
}

// Close implements Engine.
func (p *Paddle) Close() error {
	return errors.Join(p.det.Close(), p.rec.Close())
}

// detInputSize scales the longer side down to maxSide and rounds both
// sides to multiples of 32, never below 32.
func detInputSize(w, h, maxSide int) (int, int) {
	ratio := 1.0
	if m := max(w, h); m > maxSide {
		ratio = float64(maxSide) / float64(m)
	}
	round32 := func(v int) int {
		return max(32, int(math.Round(float64(v)*ratio/32))*32)
	}
	return round32(w), round32(h)
}

// detTensor resizes src to rw x rh and writes a mean/std normalized BGR
// NCHW tensor into a pooled buffer. The caller returns the buffer.
func detTensor(src *image.NRGBA, rw, rh int) (onnx.Tensor, []float32, error) {
	resized := imaging.Resize(src, rw, rh, imaging.Linear)
	plane := rw * rh
	buf := mempool.GetFloat32(3 * plane)
	for y := range rh {
		row := resized.Pix[y*resized.Stride:]
		for x := range rw {
			px := row[x*4 : x*4+3]
			i := y*rw + x
			for c := range 3 {
				v := float32(px[2-c]) / 255
				buf[c*plane+i] = (v - detMean[c]) / detStd[c]
			}
		}
	}
	t, err := onnx.NewImageTensor(buf, 3, rh, rw)
	if err != nil {
		mempool.PutFloat32(buf)
		return onnx.Tensor{}, nil, err
	}
	return t, buf, nil
}

// recWidth is the resized width of a w x h crop at the given height,
// at least recMinWidth and at most maxW.
func recWidth(w, h, height, maxW int) int {
	rw := int(math.Ceil(float64(height) * float64(w) / float64(max(h, 1))))
	rw = max(rw, recMinWidth)
	if maxW > 0 {
		rw = min(rw, maxW)
	}
	return rw
}

// recTensor resizes a line crop to the model height, normalizes to
// [-1, 1] in BGR order and pads on the right with zeros.
func recTensor(crop image.Image, height, maxW int) (onnx.Tensor, []float32, error) {
	b := crop.Bounds()
	width := recWidth(b.Dx(), b.Dy(), height, maxW)
	scaled := int(math.Ceil(float64(height) * float64(b.Dx()) / float64(max(b.Dy(), 1))))
	scaled = utils.ClampInt(scaled, 1, width)
	resized := imaging.Resize(crop, scaled, height, imaging.Linear)

	plane := width * height
	buf := mempool.GetFloat32(3 * plane)
	clear(buf)
	for y := range height {
		row := resized.Pix[y*resized.Stride:]
		for x := range scaled {
			px := row[x*4 : x*4+3]
			i := y*width + x
			for c := range 3 {
				buf[c*plane+i] = (float32(px[2-c])/255 - 0.5) / 0.5
			}
		}
	}
	t, err := onnx.NewImageTensor(buf, 3, height, width)
	if err != nil {
		mempool.PutFloat32(buf)
		return onnx.Tensor{}, nil, err
	}
	return t, buf, nil
}

// cropQuad cuts the axis aligned bounds of q out of src. Tall crops are
// turned upright so the text runs horizontally.
func cropQuad(src *image.NRGBA, q [4]utils.Point) image.Image {
	r := utils.BoundingBox(q[:]).ToRect(src.Rect)
	if r.Empty() {
		return imaging.New(0, 0, color.Black)
	}
	crop := imaging.Crop(src, r)
	if float64(crop.Rect.Dy()) >= 1.5*float64(crop.Rect.Dx()) {
		return imaging.Rotate90(crop)
	}
	return crop
}
