package fingerprint

import (
	"context"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

const spectralUnsupportedMessage = "spectral image storage is not supported by this backend"

// SpectralImageDAO is the spectral image capability of a search backend.
// Search backends cannot store spectral images, so every call fails with a
// permanent ERR_601_UNSUPPORTED_OPERATION error.
type SpectralImageDAO struct{}

// InsertSpectralImages always fails.
func (SpectralImageDAO) InsertSpectralImages(_ context.Context, _ [][]float32, _ model.ModelReference) error {
	return fperrors.Unsupported(spectralUnsupportedMessage)
}

// ReadSpectralImagesByTrackReference always fails.
func (SpectralImageDAO) ReadSpectralImagesByTrackReference(_ context.Context, _ model.ModelReference) ([]model.SpectralImage, error) {
	return nil, fperrors.Unsupported(spectralUnsupportedMessage)
}
