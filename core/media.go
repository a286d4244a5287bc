package core

// MediaKind identifies what kind of file is being analyzed.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// DefaultAnalysisCost is charged for kinds without an explicit cost.
const DefaultAnalysisCost = 10

// Cost returns the credit cost of one analysis of this kind.
func (k MediaKind) Cost() int {
	switch k {
	case MediaImage:
		return 10
	case MediaVideo:
		return 15
	case MediaAudio:
		return 20
	default:
		return DefaultAnalysisCost
	}
}
