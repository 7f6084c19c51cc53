package domain

// VideoKind is the kind marker YouTube puts on video search results.
const VideoKind = "youtube#video"

// SearchResultItem is one hit of a video search.
type SearchResultItem struct {
	Kind    string
	VideoID string
}

func (i SearchResultItem) IsVideo() bool {
	return i.Kind == VideoKind && i.VideoID != ""
}
