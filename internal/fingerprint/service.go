package fingerprint

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/fpsearch/internal/model"
	"github.com/Aman-CERP/fpsearch/internal/store"
)

// ModelService is the single entry point the CLI uses: track metadata in a
// TrackStore, sub-fingerprints through a SubFingerprintDAO.
type ModelService struct {
	tracks          store.TrackStore
	subFingerprints *SubFingerprintDAO
	spectralImages  SpectralImageDAO
}

// NewModelService composes a service. It does not take ownership of its
// collaborators; callers close them.
func NewModelService(tracks store.TrackStore, subFingerprints *SubFingerprintDAO) *ModelService {
	return &ModelService{
		tracks:          tracks,
		subFingerprints: subFingerprints,
	}
}

func (s *ModelService) InsertTrack(ctx context.Context, track *model.Track) error {
	return s.tracks.InsertTrack(ctx, track)
}

func (s *ModelService) ReadTrackByReference(ctx context.Context, ref model.ModelReference) (*model.Track, error) {
	return s.tracks.ReadTrackByID(ctx, ref.String())
}

func (s *ModelService) ReadTrackByISRC(ctx context.Context, isrc string) (*model.Track, error) {
	return s.tracks.ReadTrackByISRC(ctx, isrc)
}

func (s *ModelService) ReadAllTracks(ctx context.Context) ([]*model.Track, error) {
	return s.tracks.ReadAll(ctx)
}

// DeleteTrack removes a track's sub-fingerprints, then the track itself.
// If the sub-fingerprint delete fails the track row is kept so the delete
// can be repeated.
func (s *ModelService) DeleteTrack(ctx context.Context, ref model.ModelReference) error {
	if _, err := s.tracks.ReadTrackByID(ctx, ref.String()); err != nil {
		return err
	}
	if err := s.subFingerprints.DeleteSubFingerprintsByTrackReference(ctx, ref); err != nil {
		return err
	}
	if err := s.tracks.DeleteTrack(ctx, ref.String()); err != nil {
		return err
	}
	slog.Info("track_deleted", slog.String("track", ref.String()))
	return nil
}

// InsertHashDataForTrack stores fingerprints for an existing track.
func (s *ModelService) InsertHashDataForTrack(ctx context.Context, fingerprints []model.HashedFingerprint, ref model.ModelReference) error {
	if _, err := s.tracks.ReadTrackByID(ctx, ref.String()); err != nil {
		return err
	}
	return s.subFingerprints.InsertHashDataForTrack(ctx, fingerprints, ref)
}

func (s *ModelService) ReadHashedFingerprintsByTrack(ctx context.Context, ref model.ModelReference) ([]model.HashedFingerprint, error) {
	return s.subFingerprints.ReadHashedFingerprintsByTrackReference(ctx, ref)
}

func (s *ModelService) ReadSubFingerprintsByHashes(ctx context.Context, hashes []int64, thresholdVotes int, clusters []string) ([]model.SubFingerprintRecord, error) {
	return s.subFingerprints.ReadSubFingerprintsByHashes(ctx, hashes, thresholdVotes, clusters)
}

func (s *ModelService) ReadSubFingerprints(ctx context.Context, vectors [][]int64, thresholdVotes int, clusters []string) ([]model.SubFingerprintRecord, error) {
	return s.subFingerprints.ReadSubFingerprints(ctx, vectors, thresholdVotes, clusters)
}

func (s *ModelService) InsertSpectralImages(ctx context.Context, images [][]float32, ref model.ModelReference) error {
	return s.spectralImages.InsertSpectralImages(ctx, images, ref)
}

func (s *ModelService) ReadSpectralImagesByTrackReference(ctx context.Context, ref model.ModelReference) ([]model.SpectralImage, error) {
	return s.spectralImages.ReadSpectralImagesByTrackReference(ctx, ref)
}
