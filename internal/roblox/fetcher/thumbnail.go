package fetcher

import (
	"context"
	"errors"
	"strconv"

	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/jaxron/roapi.go/pkg/api/resources/thumbnails"
	apiTypes "github.com/jaxron/roapi.go/pkg/api/types"
	"github.com/projectamerika/mayflower/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrPendingThumbnail is returned while Roblox is still rendering a thumbnail.
	ErrPendingThumbnail = errors.New("thumbnail still pending")
	// ErrThumbnailUnavailable indicates the thumbnail is blocked, in review or failed.
	ErrThumbnailUnavailable = errors.New("thumbnail unavailable")
)

// ThumbnailFetcher handles retrieval of user headshots from the Roblox API.
type ThumbnailFetcher struct {
	roAPI  *api.API
	logger *zap.Logger
}

// NewThumbnailFetcher creates a ThumbnailFetcher with the provided API client and logger.
func NewThumbnailFetcher(roAPI *api.API, logger *zap.Logger) *ThumbnailFetcher {
	return &ThumbnailFetcher{
		roAPI:  roAPI,
		logger: logger.Named("thumbnail_fetcher"),
	}
}

// GetHeadshot returns the URL of a 720x720 PNG headshot, retrying while the
// thumbnail is still being rendered.
func (t *ThumbnailFetcher) GetHeadshot(ctx context.Context, userID uint64) (string, error) {
	requests := thumbnails.NewBatchThumbnailsBuilder()
	requests.AddRequest(apiTypes.ThumbnailRequest{
		Type:      apiTypes.AvatarHeadShotType,
		TargetID:  userID,
		RequestID: strconv.FormatUint(userID, 10),
		Size:      apiTypes.Size720x720,
		Format:    apiTypes.PNG,
	})
	batch := requests.Build()

	imageURL, err := utils.WithRetryValue(ctx, func() (string, error) {
		resp, err := t.roAPI.Thumbnails().GetBatchThumbnails(ctx, batch)
		if err != nil {
			return "", err
		}

		for _, data := range resp.Data {
			if data.TargetID != userID {
				continue
			}

			switch data.State {
			case apiTypes.ThumbnailStateCompleted:
				if data.ImageURL != nil {
					return *data.ImageURL, nil
				}
			case apiTypes.ThumbnailStatePending:
				return "", ErrPendingThumbnail
			case apiTypes.ThumbnailStateError,
				apiTypes.ThumbnailStateInReview,
				apiTypes.ThumbnailStateBlocked,
				apiTypes.ThumbnailStateUnavailable:
			}
		}

		return "", utils.Permanent(ErrThumbnailUnavailable)
	}, utils.GetThumbnailRetryOptions())
	if err != nil {
		t.logger.Warn("Failed to fetch headshot",
			zap.Uint64("userID", userID),
			zap.Error(err))

		return "", err
	}

	return imageURL, nil
}
