package testutil

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Recognizer replays a fixed OCR output. It satisfies layout.Recognizer.
type Recognizer struct {
	Out   ocrengine.Output
	Err   error
	Panic bool

	calls atomic.Int32
}

// Recognize returns Out or Err, or panics when Panic is set.
func (r *Recognizer) Recognize(ctx context.Context, _ image.Image) (ocrengine.Output, error) {
	r.calls.Add(1)
	if r.Panic {
		panic("engine exploded")
	}
	if err := ctx.Err(); err != nil {
		return ocrengine.Output{}, err
	}
	return r.Out, r.Err
}

// Calls reports how often Recognize ran.
func (r *Recognizer) Calls() int { return int(r.calls.Load()) }

// Det is an axis aligned detection.
func Det(x0, y0, x1, y1 float64, text string, conf float64) ocrengine.Detection {
	return ocrengine.Detection{
		Polygon:    [4]utils.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}},
		Text:       text,
		Confidence: conf,
	}
}

// FrontSide is the certificate number, sex and name block of a card front,
// with the sex box read at sexConf.
func FrontSide(sexConf float64) []ocrengine.Detection {
	return []ocrengine.Detection{
		Det(10, 50, 500, 80, "Citizenship Certificate No: 42-02-81-00802", 0.95),
		Det(600, 50, 750, 80, "Sex: Female", sexConf),
		Det(10, 120, 300, 150, "Full Name", 0.93),
		Det(320, 120, 600, 150, "SRISTI BHATTARAI", 0.91),
	}
}

// DateOfBirthPairs is a date of birth label followed by year, month and
// day label/value pairs on one line. It reads as 2063-AUG-07.
func DateOfBirthPairs() []ocrengine.Detection {
	return []ocrengine.Detection{
		Det(10, 200, 250, 230, "Date of Birth (AD):", 0.9),
		Det(260, 200, 320, 230, "Year", 0.9),
		Det(330, 200, 400, 230, "2063", 0.9),
		Det(420, 200, 500, 230, "Month", 0.9),
		Det(510, 200, 540, 230, "08", 0.9),
		Det(560, 200, 610, 230, "Day", 0.9),
		Det(620, 200, 650, 230, "07", 0.9),
	}
}

// PermanentAddress is the permanent address block in Kathmandu, ward 5,
// with the municipality read as given.
func PermanentAddress(municipality string) []ocrengine.Detection {
	return []ocrengine.Detection{
		Det(10, 400, 300, 430, "Permanent Address", 0.9),
		Det(10, 450, 120, 480, "District", 0.9),
		Det(130, 450, 260, 480, "Kathmandu", 0.9),
		Det(280, 450, 420, 480, "Municipality", 0.9),
		Det(430, 450, 520, 480, municipality, 0.9),
		Det(540, 450, 620, 480, "Ward No", 0.9),
		Det(630, 450, 650, 480, "5", 0.9),
	}
}

// Output wraps detections as read by the paddle engine.
func Output(dets ...[]ocrengine.Detection) ocrengine.Output {
	out := ocrengine.Output{Engine: ocrengine.EnginePaddle}
	for _, d := range dets {
		out.Detections = append(out.Detections, d...)
	}
	return out
}
