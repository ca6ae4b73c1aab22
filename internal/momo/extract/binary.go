package extract

import (
	"context"
	"fmt"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
)

// ExtractBinary dispatches raw bytes to the right concrete extractor based
// on the doc type sniffed from magic bytes or the source path's extension.
// Image/audio/video delegate to the caller's OCR/ASR providers since those
// require a model call this package doesn't own.
func ExtractBinary(ctx context.Context, data []byte, sourcePath string, ocr providers.OCRProvider, asr providers.ASRProvider) (Content, error) {
	const op = "extract.ExtractBinary"

	dt, ok := docTypeFromExtension(sourcePath)
	if !ok {
		if sniffed, sok := SniffMagicBytes(data); sok {
			dt = sniffed
		} else {
			dt = model.DocTypeUnknown
		}
	}

	switch dt {
	case model.DocTypePDF:
		return ExtractPDF(data, sourcePath)
	case model.DocTypeXLSX:
		return ExtractXLSX(data, sourcePath)
	case model.DocTypeDOCX:
		return ExtractDOCX(data, sourcePath)
	case model.DocTypePPTX:
		return ExtractPPTX(data, sourcePath)
	case model.DocTypeImage:
		return extractImage(ctx, data, sourcePath, ocr)
	case model.DocTypeAudio:
		return extractAudio(ctx, data, sourcePath, asr)
	case model.DocTypeVideo:
		// Video is treated as its audio track: the container-agnostic PCM
		// extraction is the caller's responsibility (e.g. ffmpeg demux);
		// this package only hands the resulting samples to the ASR
		// provider, per the original implementation's video-as-audio path.
		return extractAudio(ctx, data, sourcePath, asr)
	default:
		return Content{}, merrors.Recoverable(op, fmt.Errorf("unsupported binary doc type for %s", sourcePath))
	}
}

func extractImage(ctx context.Context, data []byte, sourcePath string, ocr providers.OCRProvider) (Content, error) {
	const op = "extract.extractImage"
	if ocr == nil || !ocr.IsAvailable() {
		return Content{}, merrors.Recoverable(op, merrors.ErrProviderUnavailable)
	}
	text, err := ocr.OCR(ctx, data)
	if err != nil {
		return Content{}, merrors.Recoverable(op, err)
	}
	return Content{
		Text:       text,
		DocType:    model.DocTypeImage,
		WordCount:  wordCount(text),
		SourcePath: sourcePath,
	}, nil
}

func extractAudio(ctx context.Context, data []byte, sourcePath string, asr providers.ASRProvider) (Content, error) {
	const op = "extract.extractAudio"
	if asr == nil || !asr.IsAvailable() {
		return Content{}, merrors.Recoverable(op, merrors.ErrProviderUnavailable)
	}
	text, err := asr.Transcribe(ctx, data)
	if err != nil {
		return Content{}, merrors.Recoverable(op, err)
	}
	return Content{
		Text:       text,
		DocType:    model.DocTypeAudio,
		WordCount:  wordCount(text),
		SourcePath: sourcePath,
	}, nil
}
