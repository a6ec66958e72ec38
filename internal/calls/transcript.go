package calls

import (
	"fmt"
	"math"
	"strings"

	"github.com/seregajade-png/analysis-beauty/internal/llm"
)

const (
	SpeakerAdmin   = "Администратор"
	SpeakerClient  = "Клиент"
	speakerUnknown = "Спикер"

	// speakerSwitchGap is the pause, in seconds, taken as a change of speaker.
	speakerSwitchGap = 0.5
)

// AssignSpeakers labels segments by alternating speakers on long pauses.
// The first speaker is the administrator.
func AssignSpeakers(segments []llm.Segment) []llm.Segment {
	if len(segments) == 0 {
		return []llm.Segment{}
	}
	out := make([]llm.Segment, len(segments))
	current := SpeakerAdmin
	previousEnd := 0.0
	for i, seg := range segments {
		if seg.Start-previousEnd > speakerSwitchGap && previousEnd > 0 {
			if current == SpeakerAdmin {
				current = SpeakerClient
			} else {
				current = SpeakerAdmin
			}
		}
		previousEnd = seg.End
		seg.Speaker = current
		out[i] = seg
	}
	return out
}

// FormatTranscript renders labelled segments as
// "[Speaker]: [mm:ss] text [mm:ss] text" with a new prefix line on each
// speaker change. Without segments the plain text is returned.
func FormatTranscript(text string, segments []llm.Segment) string {
	if len(segments) == 0 {
		return text
	}
	var b strings.Builder
	current := ""
	for _, seg := range segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = speakerUnknown
		}
		if speaker != current {
			current = speaker
			fmt.Fprintf(&b, "\n[%s]: ", current)
		}
		fmt.Fprintf(&b, "[%s] %s ", timecode(seg.Start), strings.TrimSpace(seg.Text))
	}
	return strings.TrimSpace(b.String())
}

func timecode(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// BuildTranscript turns a transcription into the stored transcript.
func BuildTranscript(t llm.Transcription) Transcript {
	segments := AssignSpeakers(t.Segments)
	return Transcript{
		Text:            FormatTranscript(t.Text, segments),
		Segments:        segments,
		DurationSeconds: int(math.Round(t.Duration)),
	}
}
