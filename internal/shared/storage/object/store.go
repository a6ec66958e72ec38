// Package object stores uploaded call recordings, roleplay audio and chat
// screenshots behind one interface with local and S3 backends.
package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// PutInput describes an object to store. Folder groups objects by purpose
// (for example "audio" or "images"); Namespace is hashed into the key.
type PutInput struct {
	Folder      string
	Namespace   string
	FileName    string
	ContentType string
	Body        io.Reader
}

// Stored describes a persisted object.
type Stored struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore saves and reopens binary objects by key.
type ObjectStore interface {
	Save(ctx context.Context, in PutInput) (Stored, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// ResolveMimeType prefers a declared content type over a sniffed one.
// Browsers often send audio as application/octet-stream.
func ResolveMimeType(declared string, sniff []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(sniff)
}

// Sniff reads the first 512 bytes of body to settle the MIME type and
// returns a reader that replays them.
func Sniff(body io.Reader, declared string) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read head: %w", err)
	}
	head = head[:n]
	return ResolveMimeType(declared, head), io.MultiReader(bytes.NewReader(head), body), nil
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
