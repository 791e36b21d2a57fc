package render

import (
	"html"
	"strings"

	"github.com/starford/chatnotes/internal/models"
)

// NewPartRegistry builds the default multimodal part registry.
func NewPartRegistry() *PartRegistry {
	r := &PartRegistry{}
	r.Register(PartHandlerFunc(renderTranscription), false, "audio_transcription")
	r.Register(PartHandlerFunc(placeholder("[Audio attachment]")), true, "audio_asset_pointer")
	r.Register(PartHandlerFunc(placeholder("[Voice/video input]")), true, "real_time_user_audio_video_asset_pointer")
	r.Register(PartHandlerFunc(renderImagePointer), false, "image_asset_pointer")
	return r
}

func renderTranscription(part map[string]any, _ Context) string {
	return `<div><i>"` + html.EscapeString(models.AsString(part["text"])) + `"</i></div>`
}

func placeholder(label string) func(map[string]any, Context) string {
	return func(map[string]any, Context) string {
		return "<div><i>" + label + "</i></div>"
	}
}

// renderImagePointer inlines data URLs. Pointers into the provider's file
// service cannot be resolved offline and render as a marker.
func renderImagePointer(part map[string]any, _ Context) string {
	ptr := models.AsString(part["asset_pointer"])
	if strings.HasPrefix(ptr, "data:") {
		return `<div><img src="` + html.EscapeString(ptr) + `" style="max-width: 100%;"></div>`
	}
	return "<div><i>[Image]</i></div>"
}
