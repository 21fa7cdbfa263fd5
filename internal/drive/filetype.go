package drive

import "strings"

// InferType maps a display name to the coarse type tag exposed by the API.
// The tag is derived from the extension only; the stored content type is
// kept separately for downloads.
func InferType(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return "file"
	}
	switch strings.ToLower(name[idx+1:]) {
	case "doc", "docx":
		return "doc"
	case "ppt", "pptx":
		return "ppt"
	case "pdf":
		return "pdf"
	case "png", "jpg", "jpeg", "gif", "webp":
		return "img"
	case "txt":
		return "txt"
	default:
		return "file"
	}
}
