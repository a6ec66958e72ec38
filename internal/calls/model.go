package calls

import (
	"fmt"
	"strings"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
)

const (
	// MaxAudioBytes is the largest accepted recording.
	MaxAudioBytes = 100 << 20
	// TranscribeLanguage is the spoken language of salon calls.
	TranscribeLanguage = "ru"

	audioFolder          = "audio"
	defaultAudioFileName = "audio.mp3"

	transcriptionFailurePrefix = "Ошибка транскрипции: "
	analysisFailurePrefix      = "Ошибка AI анализа: "

	persistTimeout = 15 * time.Second
)

var (
	ErrAudioRequired    = fmt.Errorf("%w: Аудиофайл не предоставлен", analysis.ErrInvalidInput)
	ErrUnsupportedAudio = fmt.Errorf("%w: Неподдерживаемый формат аудио", analysis.ErrInvalidInput)
	ErrAudioTooLarge    = fmt.Errorf("%w: Файл слишком большой (максимум 100 МБ)", analysis.ErrInvalidInput)
)

var allowedAudioTypes = map[string]struct{}{
	"audio/mpeg":  {},
	"audio/mp3":   {},
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/ogg":   {},
	"audio/mp4":   {},
	"audio/x-m4a": {},
	"audio/aac":   {},
	"audio/webm":  {},
	"video/webm":  {},
}

// AllowedAudioType reports whether contentType is an accepted recording format.
// Parameters such as codecs are ignored.
func AllowedAudioType(contentType string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	_, ok := allowedAudioTypes[base]
	return ok
}

// Call is one uploaded call recording and its analysis.
type Call struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	AdminName       string             `json:"adminName,omitempty"`
	Title           string             `json:"title"`
	AudioKey        string             `json:"audioUrl"`
	AudioFileName   string             `json:"audioFileName"`
	Transcription   string             `json:"transcription,omitempty"`
	SpeakerSegments []llm.Segment      `json:"speakerLabels,omitempty"`
	DurationSeconds *int               `json:"duration"`
	Status          analysis.Status    `json:"status"`
	OverallScore    *float64           `json:"overallScore"`
	Result          *analysis.Result   `json:"analysisResult,omitempty"`
	StageScores     map[string]float64 `json:"stageScores,omitempty"`
	ErrorMessage    string             `json:"errorMessage,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Transcript is the speech-to-text output attached when analysis begins.
type Transcript struct {
	Text            string
	Segments        []llm.Segment
	DurationSeconds int
}
