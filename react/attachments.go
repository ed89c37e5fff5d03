package react

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/model"
)

const (
	maxAttachmentDim   = 1024
	maxAttachmentBytes = 4 * 1024 * 1024
	jpegQualityInitial = 90
	jpegQualityFloor   = 40
	jpegQualityStep    = 10
)

// InputAttachment is a raw image the caller attaches to a turn, before
// decode/re-encode.
type InputAttachment struct {
	MediaType string // declared type, informational only; real decoding sniffs the bytes
	Bytes     []byte
}

// processAttachment decodes img, downsizes it to at most maxAttachmentDim on
// its longest side, and re-encodes to PNG (if the source was PNG) or JPEG,
// shrinking JPEG quality until the result is under maxAttachmentBytes.
// Non-image content is rejected as an AttachmentError (KindValidation).
func processAttachment(img InputAttachment) (model.ImageRefBlock, error) {
	decoded, format, err := image.Decode(bytes.NewReader(img.Bytes))
	if err != nil {
		return model.ImageRefBlock{}, corerrors.Wrap(corerrors.KindValidation, "attachment is not a decodable image", err)
	}

	resized := resizeToMax(decoded, maxAttachmentDim)

	mediaType := "image/jpeg"
	var encoded []byte
	if format == "png" {
		mediaType = "image/png"
		var buf bytes.Buffer
		if err := png.Encode(&buf, resized); err != nil {
			return model.ImageRefBlock{}, corerrors.Wrap(corerrors.KindInternal, "encode attachment as png", err)
		}
		encoded = buf.Bytes()
	}
	if encoded == nil || len(encoded) > maxAttachmentBytes {
		encoded, err = encodeJPEGUnderBudget(resized)
		if err != nil {
			return model.ImageRefBlock{}, err
		}
		mediaType = "image/jpeg"
	}
	if len(encoded) > maxAttachmentBytes {
		return model.ImageRefBlock{}, corerrors.New(corerrors.KindValidation, "attachment exceeds max size after re-encoding")
	}

	return model.ImageRefBlock{MediaType: mediaType, Base64: base64.StdEncoding.EncodeToString(encoded)}, nil
}

func encodeJPEGUnderBudget(img image.Image) ([]byte, error) {
	for quality := jpegQualityInitial; quality >= jpegQualityFloor; quality -= jpegQualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, corerrors.Wrap(corerrors.KindInternal, "encode attachment as jpeg", err)
		}
		if buf.Len() <= maxAttachmentBytes {
			return buf.Bytes(), nil
		}
	}
	return nil, corerrors.New(corerrors.KindValidation, fmt.Sprintf("attachment still exceeds %d bytes at minimum quality", maxAttachmentBytes))
}

// resizeToMax scales img down (nearest-neighbor) so its longest side is at
// most maxDim. Images already within bound are returned unchanged.
func resizeToMax(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	newW := maxInt(1, int(float64(w)*scale))
	newH := maxInt(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := b.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := b.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
