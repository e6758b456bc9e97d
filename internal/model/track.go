package model

import "time"

// Track is the metadata of a fingerprinted recording.
type Track struct {
	Reference     ModelReference
	Artist        string
	Title         string
	ISRC          string
	Album         string
	ReleaseYear   int
	LengthSeconds float64
	CreatedAt     time.Time
}

// SpectralImage is one spectrogram frame of a track.
type SpectralImage struct {
	TrackReference ModelReference
	OrderNumber    int
	Image          []float32
}
