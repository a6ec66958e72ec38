package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	body.WriteString("</w:body></w:document>")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create docx entry: %v", err)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("write docx entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close docx: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, "[Клиент]: Здравствуйте", "[Администратор]: Добрый день!")

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "chat.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if !strings.Contains(text, "[Клиент]: Здравствуйте\n[Администратор]: Добрый день!") {
		t.Fatalf("unexpected docx text %q", text)
	}
}

func TestExtractTextFromBytes_PlainText(t *testing.T) {
	data := []byte("\xef\xbb\xbf  [Клиент]: Привет\n")
	text, err := ExtractTextFromBytes(context.Background(), data, "application/octet-stream", "export.txt")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "[Клиент]: Привет" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_InvalidUTF8(t *testing.T) {
	if _, err := ExtractTextFromBytes(context.Background(), []byte{0xff, 0xfe, 0xfd}, "text/plain", "x.txt"); err == nil {
		t.Fatal("expected invalid utf-8 error")
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if err == nil {
		t.Fatal("expected unsupported mime error for zip")
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported mime type: application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSupported(t *testing.T) {
	cases := []struct {
		name string
		mime string
		want bool
	}{
		{"chat.txt", "text/plain; charset=utf-8", true},
		{"chat.pdf", "", true},
		{"chat.docx", "application/octet-stream", true},
		{"result.json", "", true},
		{"messages.html", "application/octet-stream", true},
		{"photo.png", "image/png", false},
		{"archive.zip", "application/zip", false},
	}
	for _, tc := range cases {
		if got := Supported(tc.name, tc.mime); got != tc.want {
			t.Fatalf("Supported(%q, %q) = %v, want %v", tc.name, tc.mime, got, tc.want)
		}
	}
}

func TestExtractTextFromBytes_TelegramExport(t *testing.T) {
	data := []byte(`{"name":"Салон","messages":[
		{"type":"message","from":"Клиент","text":"Сколько стоит окрашивание?"},
		{"type":"service","from":"Салон","text":"pinned"},
		{"type":"message","from":"Администратор","text":["От ",{"type":"bold","text":"4500 ₽"}," за короткие волосы"]},
		{"type":"message","from":"Клиент","text":""}
	]}`)
	text, err := ExtractTextFromBytes(context.Background(), data, "", "result.json")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "[Клиент]: Сколько стоит окрашивание?\n[Администратор]: От 4500 ₽ за короткие волосы"
	if text != want {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_TelegramRejectsOtherJSON(t *testing.T) {
	if _, err := ExtractTextFromBytes(context.Background(), []byte(`{"foo":1}`), "application/json", "x.json"); err == nil {
		t.Fatal("expected error for json without messages")
	}
}

func TestExtractTextFromBytes_HTMLExport(t *testing.T) {
	data := []byte(`<html><head><title>t</title><style>.x{}</style></head><body>
		<div class="message"><div class="from_name">Клиент</div><div class="text">Можно записаться   на завтра?</div></div>
		<script>alert(1)</script>
		<div class="message"><div class="from_name">Администратор</div><div class="text">Да, на 15:00</div></div>
	</body></html>`)
	text, err := ExtractTextFromBytes(context.Background(), data, "text/html; charset=utf-8", "messages.html")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, ".x{}") {
		t.Fatalf("script or style leaked: %q", text)
	}
	if !strings.Contains(text, "Клиент\nМожно записаться на завтра?") || !strings.Contains(text, "Администратор\nДа, на 15:00") {
		t.Fatalf("unexpected html text %q", text)
	}
}

func TestTruncateCutsAtLine(t *testing.T) {
	in := strings.Repeat("а", 8) + "\n" + strings.Repeat("б", 8)
	if got := truncate(in, 12); got != strings.Repeat("а", 8) {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("short text changed: %q", got)
	}
}
