package discord

// ConnectionState is the gateway connection as seen by the health endpoint.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "CONNECTING"
	StateConnected    ConnectionState = "CONNECTED"
	StateDisconnected ConnectionState = "DISCONNECTED"
)

func (s ConnectionState) String() string {
	return string(s)
}

// AttachmentRef is the attachment metadata Discord sends with an interaction.
type AttachmentRef struct {
	ID          string
	URL         string
	Filename    string
	ContentType string
	Size        int64
}
