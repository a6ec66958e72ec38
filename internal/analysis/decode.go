package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/seregajade-png/analysis-beauty/internal/extract"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/object"
)

const (
	defaultMaxMemory    = 32 << 20
	maxAttachmentBytes  = 20 << 20
	imagesFolder        = "images"
	formFieldImages     = "images"
	formFieldChatExport = "files"
)

// Image is an uploaded screenshot held in memory.
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ScreenshotReader turns chat screenshots into transcript text.
type ScreenshotReader interface {
	ReadScreenshots(ctx context.Context, images []Image) (string, error)
}

// Decoder normalizes multipart and JSON analysis requests into Input.
type Decoder struct {
	// Store receives uploaded images; nil drops them.
	Store object.ObjectStore
	// Screenshots is optional; when nil screenshot-only submissions are rejected.
	Screenshots ScreenshotReader
	MaxMemory   int64
}

type jsonRequest struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	AdminName string `json:"adminName"`
	Title     string `json:"title"`
}

// Decode reads r. namespace scopes stored images (usually the user id).
// Errors wrap ErrInvalidInput or ErrUnsupportedSource.
func (d *Decoder) Decode(r *http.Request, namespace string) (Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return d.decodeMultipart(r, namespace)
	}
	return d.decodeJSON(r)
}

func (d *Decoder) decodeJSON(r *http.Request) (Input, error) {
	if r.Body == nil {
		return Input{}, fmt.Errorf("%w: Ошибка разбора запроса: empty body", ErrInvalidInput)
	}
	var req jsonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return Input{}, fmt.Errorf("%w: Ошибка разбора запроса: %v", ErrInvalidInput, err)
	}
	source, err := ParseSource(req.Source)
	if err != nil {
		return Input{}, err
	}
	in := Input{
		Text:      req.Text,
		Source:    source,
		AdminName: strings.TrimSpace(req.AdminName),
		Title:     strings.TrimSpace(req.Title),
	}
	if strings.TrimSpace(in.Text) == "" {
		return Input{}, errEmptyText
	}
	return in, nil
}

var errEmptyText = fmt.Errorf("%w: Текст не предоставлен", ErrInvalidInput)

func (d *Decoder) decodeMultipart(r *http.Request, namespace string) (Input, error) {
	maxMemory := d.MaxMemory
	if maxMemory <= 0 {
		maxMemory = defaultMaxMemory
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return Input{}, fmt.Errorf("%w: Ошибка разбора запроса: %v", ErrInvalidInput, err)
	}
	source, err := ParseSource(r.FormValue("source"))
	if err != nil {
		return Input{}, err
	}
	in := Input{
		Text:      r.FormValue("text"),
		Source:    source,
		AdminName: strings.TrimSpace(r.FormValue("adminName")),
		Title:     strings.TrimSpace(r.FormValue("title")),
	}

	var files, images []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File[formFieldChatExport]
		images = r.MultipartForm.File[formFieldImages]
	}

	exported, err := extractExports(r.Context(), files)
	if err != nil {
		return Input{}, err
	}
	if exported != "" {
		if strings.TrimSpace(in.Text) != "" {
			in.Text = strings.TrimRight(in.Text, "\n") + "\n\n" + exported
		} else {
			in.Text = exported
		}
	}

	loaded, err := loadImages(images)
	if err != nil {
		return Input{}, err
	}
	if strings.TrimSpace(in.Text) == "" && len(loaded) > 0 && d.Screenshots != nil {
		text, err := d.Screenshots.ReadScreenshots(r.Context(), loaded)
		if err != nil {
			return Input{}, fmt.Errorf("%w: Не удалось распознать скриншоты: %v", ErrInvalidInput, err)
		}
		in.Text = text
		in.Source = SourceScreenshot
	}
	if strings.TrimSpace(in.Text) == "" {
		return Input{}, errEmptyText
	}

	if d.Store != nil {
		for _, img := range loaded {
			stored, err := d.Store.Save(r.Context(), object.PutInput{
				Folder:      imagesFolder,
				Namespace:   namespace,
				FileName:    img.FileName,
				ContentType: img.ContentType,
				Body:        bytes.NewReader(img.Data),
			})
			if err != nil {
				return Input{}, fmt.Errorf("store image %s: %w", img.FileName, err)
			}
			in.ImageKeys = append(in.ImageKeys, stored.Key)
		}
	}
	return in, nil
}

func extractExports(ctx context.Context, files []*multipart.FileHeader) (string, error) {
	var parts []string
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		if !extract.Supported(fh.Filename, contentType) {
			return "", fmt.Errorf("%w: Неподдерживаемый формат файла %s", ErrInvalidInput, fh.Filename)
		}
		data, err := readPart(fh)
		if err != nil {
			return "", err
		}
		text, err := extract.ExtractTextFromBytes(ctx, data, contentType, fh.Filename)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupported) {
				return "", fmt.Errorf("%w: Неподдерживаемый формат файла %s", ErrInvalidInput, fh.Filename)
			}
			return "", fmt.Errorf("%w: Не удалось прочитать файл %s: %v", ErrInvalidInput, fh.Filename, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func loadImages(files []*multipart.FileHeader) ([]Image, error) {
	out := make([]Image, 0, len(files))
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		if !strings.HasPrefix(contentType, "image/") {
			return nil, fmt.Errorf("%w: %s не является изображением", ErrInvalidInput, fh.Filename)
		}
		out = append(out, Image{FileName: fh.Filename, ContentType: contentType, Data: data})
	}
	return out, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxAttachmentBytes {
		return nil, fmt.Errorf("%w: Файл %s слишком большой", ErrInvalidInput, fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidInput, fh.Filename, err)
	}
	return data, nil
}
