package formseq

import (
	"io"
	"mime"
	"net/textproto"

	"github.com/mazrean/formseq/internal/emitter"
)

// Event is one item of the event sequence: *FieldEvent, *FileEvent or *LimitEvent.
type Event interface {
	isEvent()
}

// FieldEvent is a non-file part.
type FieldEvent struct {
	Name     string
	Value    string
	Header   Header
	Encoding string
	MIMEType string
	// NameTruncated is set when the name exceeded the field name size limit.
	NameTruncated bool
	// ValueTruncated is set when the value exceeded the field size limit.
	ValueTruncated bool
}

// FileEvent is a file part.
//
// Content must be read to EOF or closed before the sequence yields any event
// for a later part: the parser does not continue past a file until then.
type FileEvent struct {
	Name string
	// FileName is supplied by the client and must not be trusted.
	FileName string
	Header   Header
	Encoding string
	MIMEType string
	Content  FileContent
}

// FileContent is the content of a file part.
type FileContent interface {
	io.ReadCloser
	// Truncated reports whether the content was cut at the file size limit.
	// Check it after reading to EOF.
	Truncated() bool
}

// LimitKind is a structural limit.
type LimitKind string

const (
	LimitParts  LimitKind = emitter.LimitParts
	LimitFiles  LimitKind = emitter.LimitFiles
	LimitFields LimitKind = emitter.LimitFields
)

// LimitEvent reports that a structural limit was exceeded. Parsing continues,
// but later parts of the same kind are skipped.
type LimitEvent struct {
	Kind LimitKind
}

func (*FieldEvent) isEvent() {}
func (*FileEvent) isEvent()  {}
func (*LimitEvent) isEvent() {}

const (
	defaultEncoding  = "7bit"
	defaultFieldMIME = "text/plain"
	defaultFileMIME  = "application/octet-stream"
)

func newFieldEvent(f emitter.Field) *FieldEvent {
	header := newHeader(f.Header)

	return &FieldEvent{
		Name:           f.Name,
		Value:          f.Value,
		Header:         header,
		Encoding:       orDefault(header.TransferEncoding(), defaultEncoding),
		MIMEType:       orDefault(header.mediaType(), defaultFieldMIME),
		NameTruncated:  f.NameTruncated,
		ValueTruncated: f.ValueTruncated,
	}
}

func newFileEvent(f emitter.File) *FileEvent {
	header := newHeader(f.Header)

	return &FileEvent{
		Name:     f.Name,
		FileName: f.FileName,
		Header:   header,
		Encoding: orDefault(header.TransferEncoding(), defaultEncoding),
		MIMEType: orDefault(header.mediaType(), defaultFileMIME),
		Content:  f.Content,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type Header struct {
	dispositionParams map[string]string
	header            textproto.MIMEHeader
}

func newHeader(h textproto.MIMEHeader) Header {
	contentDisposition := h.Get("Content-Disposition")
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		params = make(map[string]string)
	}

	return Header{
		dispositionParams: params,
		header:            h,
	}
}

// Get returns the first value associated with the given key.
// If there are no values associated with the key, Get returns "".
func (h Header) Get(key string) string {
	return h.header.Get(key)
}

// ContentType returns the value of the "Content-Type" header field.
// If there are no values associated with the key, ContentType returns "".
func (h Header) ContentType() string {
	return h.header.Get("Content-Type")
}

// TransferEncoding returns the value of the "Content-Transfer-Encoding" header field.
func (h Header) TransferEncoding() string {
	return h.header.Get("Content-Transfer-Encoding")
}

// Name returns the value of the "name" parameter in the "Content-Disposition" header field.
// If there are no values associated with the key, Name returns "".
func (h Header) Name() string {
	return h.dispositionParams["name"]
}

// FileName returns the value of the "filename" parameter in the "Content-Disposition" header field.
// If there are no values associated with the key, FileName returns "".
func (h Header) FileName() string {
	return h.dispositionParams["filename"]
}

// mediaType is the Content-Type without parameters.
func (h Header) mediaType() string {
	mediaType, _, err := mime.ParseMediaType(h.ContentType())
	if err != nil {
		return h.ContentType()
	}
	return mediaType
}
