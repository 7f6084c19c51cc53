package domain

import "testing"

func TestImageAttachment(t *testing.T) {
	tests := []struct {
		name     string
		att      *ImageAttachment
		isImage  bool
		mimeType string
		size     int
	}{
		{name: "nil", att: nil, isImage: false, mimeType: "", size: 0},
		{name: "png", att: &ImageAttachment{Filename: "a.png", ContentType: "image/png", Data: []byte{1, 2}}, isImage: true, mimeType: "image/png", size: 2},
		{name: "upper case type", att: &ImageAttachment{ContentType: "IMAGE/JPEG"}, isImage: true, mimeType: "IMAGE/JPEG"},
		{name: "no type jpg", att: &ImageAttachment{Filename: "base.JPG"}, isImage: true, mimeType: "image/jpeg"},
		{name: "no type unknown", att: &ImageAttachment{Filename: "base"}, isImage: true, mimeType: "image/png"},
		{name: "text", att: &ImageAttachment{Filename: "a.txt", ContentType: "text/plain"}, isImage: false, mimeType: "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.att.IsImage(); got != tt.isImage {
				t.Fatalf("IsImage() = %v, want %v", got, tt.isImage)
			}
			if got := tt.att.MIMEType(); got != tt.mimeType {
				t.Fatalf("MIMEType() = %q, want %q", got, tt.mimeType)
			}
			if got := tt.att.Size(); got != tt.size {
				t.Fatalf("Size() = %d, want %d", got, tt.size)
			}
		})
	}
}

func TestSearchResultItemIsVideo(t *testing.T) {
	if !(SearchResultItem{Kind: VideoKind, VideoID: "abc"}).IsVideo() {
		t.Fatalf("video item must be a video")
	}
	if (SearchResultItem{Kind: "youtube#channel", VideoID: "abc"}).IsVideo() {
		t.Fatalf("channel item must not be a video")
	}
	if (SearchResultItem{Kind: VideoKind}).IsVideo() {
		t.Fatalf("item without id must not be a video")
	}
}

func TestCommandType(t *testing.T) {
	if !CommandBaselink.IsValid() || CommandType("raid").IsValid() {
		t.Fatalf("unexpected command validity")
	}
}
