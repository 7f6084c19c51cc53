package domain

type CommandType string

const (
	CommandBaselink CommandType = "baselink"
	CommandHelp     CommandType = "help"
	CommandUnknown  CommandType = "unknown"
)

func (c CommandType) String() string {
	return string(c)
}

func (c CommandType) IsValid() bool {
	switch c {
	case CommandBaselink, CommandHelp, CommandUnknown:
		return true
	default:
		return false
	}
}

// ScreenshotParam is the option name carrying the uploaded image.
const ScreenshotParam = "screenshot"

// AttachmentErrorParam carries the download failure when the screenshot could
// not be fetched.
const AttachmentErrorParam = "screenshot_error"
