package extract

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

const docxBody = "word/document.xml"

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", err
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				out.WriteString(s)
				out.WriteByte('\n')
			}
		}
	}
	return out.String(), nil
}

func isDOCX(data []byte) bool {
	_, err := docxEntry(data)
	return err == nil
}

func docxEntry(data []byte) (*zip.File, error) {
	if len(data) == 0 {
		return nil, errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == docxBody {
			return f, nil
		}
	}
	return nil, errors.New("document.xml not found")
}

func extractDOCX(data []byte) (string, error) {
	f, err := docxEntry(data)
	if err != nil {
		return "", err
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			out.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				out.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				out.WriteByte('\n')
			}
		}
	}
	return out.String(), nil
}

// extractHTML keeps the visible text of a saved chat page, one block
// element per line.
func extractHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
				if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
					out.WriteByte(' ')
				}
				out.WriteString(s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElement(n.Data) && out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
	}
	walk(doc)
	return out.String(), nil
}

func blockElement(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "section", "article":
		return true
	}
	return false
}

// telegramExport is the subset of a Telegram Desktop result.json we read.
type telegramExport struct {
	Name     string            `json:"name"`
	Messages []telegramMessage `json:"messages"`
}

type telegramMessage struct {
	Type string          `json:"type"`
	From string          `json:"from"`
	Date string          `json:"date"`
	Text json.RawMessage `json:"text"`
}

// extractTelegram renders messages as "[from]: text" lines. Text is either
// a string or a list mixing strings and entity objects.
func extractTelegram(data []byte) (string, error) {
	var export telegramExport
	if err := json.Unmarshal(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), &export); err != nil {
		return "", err
	}
	if export.Messages == nil {
		return "", errors.New("not a telegram export: messages missing")
	}
	var out strings.Builder
	for _, m := range export.Messages {
		if m.Type != "" && m.Type != "message" {
			continue
		}
		text := strings.TrimSpace(telegramText(m.Text))
		if text == "" {
			continue
		}
		from := m.From
		if from == "" {
			from = "?"
		}
		out.WriteString("[" + from + "]: " + text + "\n")
	}
	return out.String(), nil
}

func telegramText(raw json.RawMessage) string {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		var s string
		if json.Unmarshal(p, &s) == nil {
			b.WriteString(s)
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(p, &entity) == nil {
			b.WriteString(entity.Text)
		}
	}
	return b.String()
}
