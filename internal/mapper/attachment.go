package mapper

import (
	"net/url"
	"strings"
)

// Attachment is the stable client-facing view of a Chatwoot attachment,
// derived from whatever partial metadata the platform sent.
type Attachment struct {
	ID        *int64  `json:"id,omitempty"`
	FileType  *string `json:"file_type,omitempty"`
	FileSize  *int64  `json:"file_size,omitempty"`
	Extension *string `json:"extension,omitempty"`
	URL       *string `json:"url,omitempty"`
	ThumbURL  *string `json:"thumb_url,omitempty"`
	Title     *string `json:"title,omitempty"`
	IsImage   bool    `json:"is_image"`
}

var imageExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "webp": {},
	"svg": {}, "bmp": {}, "ico": {}, "avif": {}, "heic": {},
}

// NormalizeAttachment derives title, extension and image classification from
// a raw attachment record. Must not fail on malformed URLs.
func NormalizeAttachment(raw Record) Attachment {
	fileURL := OptionalString(raw["data_url"])
	if fileURL == nil {
		fileURL = OptionalString(raw["thumb_url"])
	}

	title := OptionalString(raw["fallback_title"])
	if title == nil {
		title = filenameFromURL(fileURL)
	}

	extension := OptionalString(raw["extension"])
	if extension == nil {
		extension = extensionFromFilename(title)
	}
	if extension != nil {
		lowered := strings.ToLower(*extension)
		extension = &lowered
	}

	fileType := OptionalString(raw["file_type"])

	return Attachment{
		ID:        NumericID(raw["id"]),
		FileType:  fileType,
		FileSize:  NumericID(raw["file_size"]),
		Extension: extension,
		URL:       fileURL,
		ThumbURL:  OptionalString(raw["thumb_url"]),
		Title:     title,
		IsImage:   isImage(fileType, extension),
	}
}

func isImage(fileType, extension *string) bool {
	if fileType != nil {
		if strings.HasPrefix(*fileType, "image/") || *fileType == "image" {
			return true
		}
	}
	if extension != nil {
		if _, ok := imageExtensions[*extension]; ok {
			return true
		}
	}
	return false
}

// filenameFromURL takes the final path segment of the URL, URL-decoded.
// Malformed URLs degrade to naive slash/query splitting.
func filenameFromURL(rawURL *string) *string {
	if rawURL == nil {
		return nil
	}

	if parsed, err := url.Parse(*rawURL); err == nil && parsed.Path != "" {
		segments := splitNonEmpty(parsed.Path, "/")
		if len(segments) > 0 {
			last := segments[len(segments)-1]
			if decoded, err := url.PathUnescape(last); err == nil && decoded != "" {
				return &decoded
			}
			return &last
		}
	}

	withoutQuery, _, _ := strings.Cut(*rawURL, "?")
	segments := splitNonEmpty(withoutQuery, "/")
	if len(segments) == 0 {
		return nil
	}
	last := segments[len(segments)-1]
	return &last
}

func extensionFromFilename(filename *string) *string {
	if filename == nil {
		return nil
	}
	parts := strings.Split(*filename, ".")
	if len(parts) < 2 {
		return nil
	}
	ext := parts[len(parts)-1]
	if ext == "" {
		return nil
	}
	return &ext
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
