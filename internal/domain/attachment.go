package domain

import "strings"

// ImageAttachment is the uploaded screenshot. It lives for one interaction.
type ImageAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (a *ImageAttachment) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// IsImage reports whether the declared content type is an image. An empty
// content type is accepted; Discord omits it for some uploads.
func (a *ImageAttachment) IsImage() bool {
	if a == nil {
		return false
	}
	return a.ContentType == "" || strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// MIMEType returns the declared content type or one derived from the file extension.
func (a *ImageAttachment) MIMEType() string {
	if a == nil {
		return ""
	}
	if a.ContentType != "" {
		return a.ContentType
	}
	name := strings.ToLower(a.Filename)
	switch {
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(name, ".gif"):
		return "image/gif"
	case strings.HasSuffix(name, ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}
