package adapter

import (
	"fmt"
	"strings"

	"github.com/kapu/baselink-bot/internal/constants"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/util"
)

// HelpEntry is one line of the help message.
type HelpEntry struct {
	Name        string
	Description string
}

// ResponseFormatter renders the user-visible replies.
type ResponseFormatter struct{}

func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

type resolutionView struct {
	Link   string
	Detail string
}

// FormatResolution renders the reply for a terminal outcome. Every outcome has
// its own message.
func (f *ResponseFormatter) FormatResolution(res domain.Resolution) string {
	view := resolutionView{
		Link:   res.Link,
		Detail: f.errorDetail(res.Err),
	}

	message, err := executeFormatterTemplate(res.Outcome.String(), view)
	if err != nil {
		return f.fallback(res, view)
	}
	return message
}

func (f *ResponseFormatter) FormatHelp(entries []HelpEntry) string {
	message, err := executeFormatterTemplate("help", struct{ Commands []HelpEntry }{Commands: entries})
	if err != nil {
		var sb strings.Builder
		for _, entry := range entries {
			sb.WriteString(fmt.Sprintf("/%s - %s\n", entry.Name, entry.Description))
		}
		return strings.TrimSpace(sb.String())
	}
	return message
}

func (f *ResponseFormatter) errorDetail(err error) string {
	if err == nil {
		return "unknown error"
	}
	return util.TruncateString(err.Error(), constants.ReplyLimits.ErrorDetail)
}

// fallback keeps replies flowing if the embedded templates are broken.
func (f *ResponseFormatter) fallback(res domain.Resolution, view resolutionView) string {
	switch res.Outcome {
	case domain.OutcomeFound:
		return "✅ Found base link: " + view.Link
	case domain.OutcomeNoText:
		return "⚠️ Could not read any text from the screenshot. Try a clearer image."
	case domain.OutcomeNoLink:
		return "❌ No base link found in top YouTube results. Try another image."
	case domain.OutcomeExtractionError:
		return "⚠️ Error reading the screenshot: " + view.Detail
	case domain.OutcomeSearchError:
		return "⚠️ Error searching YouTube: " + view.Detail
	default:
		return "⚠️ " + view.Detail
	}
}
