package providers

import (
	"context"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go"
)

// WhisperConfig configures whisperASR.
type WhisperConfig struct {
	ModelPath string
}

type whisperASR struct {
	model   whisper.Model
	ok      bool
	loadErr error
}

// NewWhisperASR loads a whisper.cpp model file and returns an ASRProvider.
// If the model fails to load, IsAvailable reports false and Transcribe
// returns the load error — mirroring the fail-closed contract spec.md §4.1
// requires for binary-type extraction (provider unavailable is fatal for
// the document, never silently empty).
func NewWhisperASR(cfg WhisperConfig) ASRProvider {
	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return &whisperASR{ok: false, loadErr: err}
	}
	return &whisperASR{model: model, ok: true}
}

func (w *whisperASR) IsAvailable() bool { return w.ok }

func (w *whisperASR) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if !w.ok {
		return "", w.loadErr
	}
	ctxW, err := w.model.NewContext()
	if err != nil {
		return "", err
	}
	samples := pcm16ToFloat32(pcm)
	if err := ctxW.Process(samples, nil, nil); err != nil {
		return "", err
	}
	var text string
	for {
		seg, err := ctxW.NextSegment()
		if err != nil {
			break
		}
		text += seg.Text
	}
	return text, nil
}

// pcm16ToFloat32 converts little-endian 16-bit PCM samples to the
// [-1.0, 1.0] float32 samples whisper.cpp expects.
func pcm16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		out[i] = float32(v) / 32768.0
	}
	return out
}
