package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/roapi.go/pkg/api"
	apiErrors "github.com/jaxron/roapi.go/pkg/api/errors"
	"go.uber.org/zap"
)

var (
	// ErrUserNotFound indicates that no Roblox account matches the lookup.
	ErrUserNotFound = errors.New("roblox user not found")
	// ErrLookupFailed indicates that the users API could not be reached or answered badly.
	ErrLookupFailed = errors.New("roblox user lookup failed")
)

// invalidUserIDCode is the users API error code for an unknown user ID.
const invalidUserIDCode = 3

// User holds the account details shown in a manage session.
type User struct {
	ID          uint64
	Name        string
	DisplayName string
	IsBanned    bool
	Created     time.Time
}

type usernamesRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type usernamesResponse struct {
	Data []struct {
		RequestedUsername string `json:"requestedUsername"`
		ID                uint64 `json:"id"`
		Name              string `json:"name"`
	} `json:"data"`
}

// UserFetcher resolves Roblox usernames and account details.
type UserFetcher struct {
	roAPI      *api.API
	httpClient *http.Client
	usersURL   string
	logger     *zap.Logger
}

// NewUserFetcher creates a UserFetcher. Username lookups go to usersURL
// directly while account details go through the roapi client.
func NewUserFetcher(roAPI *api.API, usersURL string, timeout time.Duration, logger *zap.Logger) *UserFetcher {
	return &UserFetcher{
		roAPI:      roAPI,
		httpClient: &http.Client{Timeout: timeout},
		usersURL:   strings.TrimRight(usersURL, "/"),
		logger:     logger.Named("user_fetcher"),
	}
}

// ResolveUsername returns the ID of the account with the given username.
func (u *UserFetcher) ResolveUsername(ctx context.Context, username string) (uint64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrUserNotFound
	}

	body, err := sonic.Marshal(usernamesRequest{
		Usernames:          []string{username},
		ExcludeBannedUsers: false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode username lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.usersURL+"/v1/usernames/users", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %w", ErrLookupFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read response body: %w", ErrLookupFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: HTTP %d: %s", ErrLookupFailed, resp.StatusCode, string(respBody))
	}

	var result usernamesResponse
	if err := sonic.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("%w: failed to parse response: %w", ErrLookupFailed, err)
	}

	if len(result.Data) == 0 || result.Data[0].ID == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	u.logger.Debug("Resolved username",
		zap.String("username", username),
		zap.Uint64("userID", result.Data[0].ID))

	return result.Data[0].ID, nil
}

// GetUser fetches the account details of a Roblox user.
func (u *UserFetcher) GetUser(ctx context.Context, userID uint64) (*User, error) {
	userInfo, err := u.roAPI.Users().GetUserByID(ctx, userID)
	if err != nil {
		u.logger.Debug("Error fetching user info",
			zap.Uint64("userID", userID),
			zap.Error(err))

		return nil, classifyUserError(userID, err)
	}

	return &User{
		ID:          userInfo.ID,
		Name:        userInfo.Name,
		DisplayName: userInfo.DisplayName,
		IsBanned:    userInfo.IsBanned,
		Created:     userInfo.Created,
	}, nil
}

// classifyUserError separates a missing account from an unreachable or
// failing API.
func classifyUserError(userID uint64, err error) error {
	var apiErr *apiErrors.APIError
	if errors.As(err, &apiErr) {
		for _, data := range apiErr.Errors {
			if data.Code == invalidUserIDCode {
				return fmt.Errorf("%w: %d: %w", ErrUserNotFound, userID, err)
			}
		}
	}

	return fmt.Errorf("%w: %d: %w", ErrLookupFailed, userID, err)
}
