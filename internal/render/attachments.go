package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/starford/chatnotes/internal/models"
)

// attachments collects data URL images from visible multimodal messages.
func (r *Renderer) attachments(msgs []models.Message) []models.Attachment {
	var out []models.Attachment
	for _, m := range msgs {
		if m.Content.Type() != "multimodal_text" || !r.policy.Visible(m) {
			continue
		}
		for _, p := range m.Content.Parts() {
			ptr := models.AsString(models.AsMap(p)["asset_pointer"])
			if !strings.HasPrefix(ptr, "data:") {
				continue
			}
			data, err := DataURLToPNG(ptr)
			if err != nil {
				continue
			}
			out = append(out, models.Attachment{
				Name:     fmt.Sprintf("image-%d.png", len(out)+1),
				MIMEType: "image/png",
				Data:     data,
			})
		}
	}
	return out
}

// DataURLToPNG decodes a base64 data URL and re-encodes the image as PNG.
func DataURLToPNG(u string) ([]byte, error) {
	_, payload, ok := strings.Cut(u, ";base64,")
	if !ok {
		return nil, errors.New("render: data url is not base64")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("render: decode data url: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("render: decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
