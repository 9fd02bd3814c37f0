package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"math"

	"emolens/internal/core/emotion"
	"emolens/internal/core/sampling"
	perr "emolens/internal/platform/errors"
)

// encodeUnit builds the input tensor: frames go as one base64 PNG (BYTES), audio as FP32 PCM
func encodeUnit(u sampling.Unit) (tensor, error) {
	switch {
	case u.Image != nil:
		return encodeImage(u.Image)
	case u.Audio != nil:
		return encodeAudio(u.Audio, u.SampleRate)
	default:
		return tensor{}, perr.SampleFormatf("model: unit %d has no media", u.Pos)
	}
}

func encodeImage(img image.Image) (tensor, error) {
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return tensor{}, perr.SampleFormatf("model: empty frame %v", b)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return tensor{}, perr.Wrap(err, perr.ErrorCodeSampleFormat, "model: png encode")
	}
	data, _ := json.Marshal([]string{base64.StdEncoding.EncodeToString(buf.Bytes())})
	return tensor{
		Name:       "image",
		Shape:      []int{1},
		Datatype:   "BYTES",
		Parameters: map[string]any{"content_type": "image/png"},
		Data:       data,
	}, nil
}

func encodeAudio(pcm []float32, rate int) (tensor, error) {
	if len(pcm) == 0 {
		return tensor{}, perr.SampleFormatf("model: empty audio window")
	}
	for i, v := range pcm {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return tensor{}, perr.SampleFormatf("model: non-finite pcm at %d", i)
		}
	}
	data, err := json.Marshal(pcm)
	if err != nil {
		return tensor{}, perr.Wrap(err, perr.ErrorCodeSampleFormat, "model: pcm encode")
	}
	t := tensor{
		Name:     "audio",
		Shape:    []int{1, len(pcm)},
		Datatype: "FP32",
		Data:     data,
	}
	if rate > 0 {
		t.Parameters = map[string]any{"sample_rate": rate}
	}
	return t, nil
}

// decodePrediction pulls logits [1,C] and attentions [C,K] out of the response
func decodePrediction(resp inferResponse, classes int) (emotion.RawPrediction, error) {
	var logitsT, attT *tensor
	for i := range resp.Outputs {
		switch resp.Outputs[i].Name {
		case outLogits:
			logitsT = &resp.Outputs[i]
		case outAttentions:
			attT = &resp.Outputs[i]
		}
	}
	if logitsT == nil || attT == nil {
		return emotion.RawPrediction{}, perr.SampleFormatf("model: response missing %s or %s", outLogits, outAttentions)
	}

	logits, err := floats(*logitsT)
	if err != nil {
		return emotion.RawPrediction{}, err
	}
	if len(logits) != classes || shapeProduct(logitsT.Shape) != classes {
		return emotion.RawPrediction{}, perr.SampleFormatf("model: %d logits (shape %v) for %d classes", len(logits), logitsT.Shape, classes)
	}

	att, err := floats(*attT)
	if err != nil {
		return emotion.RawPrediction{}, err
	}
	if len(attT.Shape) != 2 || attT.Shape[0] != classes || attT.Shape[1] <= 0 || len(att) != attT.Shape[0]*attT.Shape[1] {
		return emotion.RawPrediction{}, perr.SampleFormatf("model: attentions shape %v with %d values for %d classes", attT.Shape, len(att), classes)
	}
	k := attT.Shape[1]
	heads := make([][]float64, classes)
	for i := range classes {
		heads[i] = att[i*k : (i+1)*k]
	}
	return emotion.RawPrediction{Logits: logits, Attentions: heads}, nil
}

func floats(t tensor) ([]float64, error) {
	var out []float64
	if err := json.Unmarshal(t.Data, &out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSampleFormat, "model: output %s is not numeric", t.Name)
	}
	return out, nil
}

func shapeProduct(s []int) int {
	if len(s) == 0 {
		return 0
	}
	p := 1
	for _, d := range s {
		p *= d
	}
	return p
}
