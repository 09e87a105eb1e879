// Package probe wraps the media-probing subprocess (an ffprobe-compatible
// binary invoked with flags requesting format+stream info, JSON on
// stdout) and maps its output into types.ProbeMetadata. A non-zero exit
// is a probe failure; the planner falls back to filename parsing.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/opd-ai/cinetidy/pkg/types"
)

// DefaultTimeout matches the spec's media-probe timeout.
const DefaultTimeout = 30 * time.Second

// Prober invokes the configured binary to extract ProbeMetadata.
type Prober struct {
	BinaryPath string
	Timeout    time.Duration
}

// NewProber constructs a Prober, defaulting BinaryPath to "ffprobe" and
// Timeout to DefaultTimeout.
func NewProber(binaryPath string, timeout time.Duration) *Prober {
	if binaryPath == "" {
		binaryPath = "ffprobe"
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Prober{BinaryPath: binaryPath, Timeout: timeout}
}

// Probe runs the probe binary against path and returns ProbeMetadata.
func (p *Prober) Probe(ctx context.Context, path string) (types.ProbeMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.BinaryPath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return types.ProbeMetadata{}, fmt.Errorf("probe %q: %w", path, err)
	}
	return parseJSON(out)
}

type probeFormat struct {
	FormatName string `json:"format_name"`
}

type probeStream struct {
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	PixFmt        string `json:"pix_fmt"`
	ChannelLayout string `json:"channel_layout"`
	Channels      int    `json:"channels"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

func parseJSON(data []byte) (types.ProbeMetadata, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.ProbeMetadata{}, fmt.Errorf("parse probe JSON: %w", err)
	}

	var meta types.ProbeMetadata
	if raw.Format.FormatName != "" {
		meta.Container = strings.Split(raw.Format.FormatName, ",")[0]
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			meta.VideoCodec = s.CodecName
			meta.Resolution = resolutionToken(s.Height)
			meta.BitDepth = bitDepthFromPixFmt(s.PixFmt)
		case "audio":
			if meta.AudioCodec == "" {
				meta.AudioCodec = s.CodecName
				meta.AudioChannels = channelLayout(s.ChannelLayout, s.Channels)
			}
		}
	}
	return meta, nil
}

func resolutionToken(height int) string {
	switch {
	case height >= 2000:
		return "2160p"
	case height >= 1000:
		return "1080p"
	case height >= 700:
		return "720p"
	case height > 0:
		return "480p"
	default:
		return ""
	}
}

func bitDepthFromPixFmt(pixFmt string) string {
	if strings.Contains(pixFmt, "10") {
		return "10"
	}
	if strings.Contains(pixFmt, "12") {
		return "12"
	}
	if pixFmt != "" {
		return "8"
	}
	return ""
}

func channelLayout(layout string, channels int) string {
	if layout != "" {
		return layout
	}
	if channels > 0 {
		return strconv.Itoa(channels) + "ch"
	}
	return ""
}
