package analysis

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/object/local"
)

func jsonRequestOf(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/chats/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type part struct {
	field, fileName, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, fields map[string]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.fileName+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := w.Write(p.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/chats/stream", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDecodeJSON(t *testing.T) {
	d := &Decoder{}
	in, err := d.Decode(jsonRequestOf(`{"text":"[Клиент]: Привет","source":"WHATSAPP","adminName":" Анна "}`), "u1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Text != "[Клиент]: Привет" || in.Source != SourceWhatsApp || in.AdminName != "Анна" || in.Title != "" {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestDecodeJSONDefaultsSource(t *testing.T) {
	in, err := (&Decoder{}).Decode(jsonRequestOf(`{"text":"hi"}`), "u1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Source != SourceText {
		t.Fatalf("expected TEXT, got %s", in.Source)
	}
}

func TestDecodeRejectsBlankText(t *testing.T) {
	d := &Decoder{}
	if _, err := d.Decode(jsonRequestOf(`{"text":"   ","source":"TEXT"}`), "u1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for JSON, got %v", err)
	}
	req := multipartRequest(t, map[string]string{"text": " \n\t", "source": "TEXT"})
	if _, err := d.Decode(req, "u1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for multipart, got %v", err)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := (&Decoder{}).Decode(jsonRequestOf(`{"text":`), "u1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDecodeRejectsUnknownSource(t *testing.T) {
	if _, err := (&Decoder{}).Decode(jsonRequestOf(`{"text":"hi","source":"VIBER"}`), "u1"); !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource, got %v", err)
	}
}

func TestDecodeMultipartFieldsAndExport(t *testing.T) {
	req := multipartRequest(t,
		map[string]string{"text": "Начало", "source": "telegram", "adminName": "Олег", "title": "Запись"},
		part{field: "files", fileName: "export.txt", contentType: "text/plain", data: []byte("[Клиент]: Сколько стоит?")},
	)
	in, err := (&Decoder{}).Decode(req, "u1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Source != SourceTelegram || in.AdminName != "Олег" || in.Title != "Запись" {
		t.Fatalf("unexpected fields %+v", in)
	}
	if in.Text != "Начало\n\n[Клиент]: Сколько стоит?" {
		t.Fatalf("unexpected text %q", in.Text)
	}
}

func TestDecodeMultipartRejectsUnsupportedExport(t *testing.T) {
	req := multipartRequest(t, map[string]string{"text": "x"},
		part{field: "files", fileName: "chat.exe", contentType: "application/x-msdownload", data: []byte("MZ")},
	)
	if _, err := (&Decoder{}).Decode(req, "u1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type stubScreenshots struct {
	text  string
	calls int
}

func (s *stubScreenshots) ReadScreenshots(ctx context.Context, images []Image) (string, error) {
	s.calls++
	return s.text, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestDecodeScreenshotsWithReader(t *testing.T) {
	store := local.New(t.TempDir())
	reader := &stubScreenshots{text: "[Клиент]: Запишите меня"}
	d := &Decoder{Store: store, Screenshots: reader}

	req := multipartRequest(t, map[string]string{"source": "INSTAGRAM"},
		part{field: "images", fileName: "shot.png", contentType: "image/png", data: pngHeader},
	)
	in, err := d.Decode(req, "u1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reader.calls != 1 || in.Source != SourceScreenshot || in.Text != reader.text {
		t.Fatalf("unexpected screenshot decode %+v", in)
	}
	if len(in.ImageKeys) != 1 || !strings.HasPrefix(in.ImageKeys[0], "images/") {
		t.Fatalf("expected stored image key, got %v", in.ImageKeys)
	}
}

func TestDecodeScreenshotsWithoutReaderRejected(t *testing.T) {
	req := multipartRequest(t, nil,
		part{field: "images", fileName: "shot.png", contentType: "image/png", data: pngHeader},
	)
	if _, err := (&Decoder{}).Decode(req, "u1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDecodeRejectsNonImageInImages(t *testing.T) {
	req := multipartRequest(t, map[string]string{"text": "hi"},
		part{field: "images", fileName: "note.txt", contentType: "text/plain", data: []byte("hello")},
	)
	if _, err := (&Decoder{}).Decode(req, "u1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
