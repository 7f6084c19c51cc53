package constants

import "time"

// BaseLinkPattern matches a Clash of Clans base layout deep link. The link
// ends at any Unicode whitespace; RE2's \s alone is ASCII only.
const BaseLinkPattern = `https://link\.clashofclans\.com/[^\s\x{0B}\x{1C}-\x{1F}\x{85}\p{Z}]+`

var SearchConfig = struct {
	MaxResults     int64
	SearchParts    []string
	VideoParts     []string
	MaxQueryLength int
}{
	MaxResults:     5,
	SearchParts:    []string{"id", "snippet"},
	VideoParts:     []string{"snippet"},
	MaxQueryLength: 500, // YouTube rejects very long q values
}

var YouTubeQuota = struct {
	DailyLimit    int
	SearchCost    int
	VideosCost    int
	SafetyMargin  int
	ResetLocation string
}{
	DailyLimit:    10000,
	SearchCost:    100, // search.list
	VideosCost:    1,   // videos.list
	SafetyMargin:  500,
	ResetLocation: "America/Los_Angeles",
}

var OCRConfig = struct {
	NoTextMarker   string
	VisionPrompt   string
	MaxVisionToken int
}{
	NoTextMarker: "NO_TEXT_FOUND",
	VisionPrompt: "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
		"- No formatting\n" +
		"- No markdown\n" +
		"- No explanations\n" +
		"- Preserve line breaks from the visual layout.\n" +
		"If no text found, return 'NO_TEXT_FOUND'",
	MaxVisionToken: 1024,
}

var ServerConfig = struct {
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	KeepAliveBody     string
}{
	ReadHeaderTimeout: 5 * time.Second,
	ShutdownTimeout:   10 * time.Second,
	KeepAliveBody:     "Bot is running!",
}

var LogLimits = struct {
	ExtractedText int
}{
	ExtractedText: 120,
}

var ReplyLimits = struct {
	ErrorDetail int
}{
	ErrorDetail: 300,
}
