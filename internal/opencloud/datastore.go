package opencloud

import (
	"context"
	"crypto/md5" //nolint:gosec // required by the datastore API for content integrity
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/projectamerika/mayflower/internal/metrics"
	"go.uber.org/zap"
)

// entryVersionHeader carries the version of the entry that was read.
const entryVersionHeader = "roblox-entry-version"

// Version identifies one revision of a datastore entry.
// An empty Version means no revision is known.
type Version string

// PutOptions controls conditional writes.
type PutOptions struct {
	// MatchVersion makes the write fail with ErrVersionConflict unless the
	// entry is still at this version.
	MatchVersion Version
	// ExclusiveCreate makes the write fail with ErrVersionConflict if the
	// entry already exists.
	ExclusiveCreate bool
}

// Datastore reads and writes standard datastore entries of one universe.
// It keeps no cache and never retries; every call goes to the remote service.
type Datastore struct {
	client  *Client
	baseURL string
	logger  *zap.Logger
}

// NewDatastore creates a datastore API client rooted at baseURL.
func NewDatastore(client *Client, baseURL string) *Datastore {
	return &Datastore{
		client:  client,
		baseURL: baseURL,
		logger:  client.logger.Named("datastore"),
	}
}

// Get decodes the entry at (namespace, key) into out and returns its version.
// A missing entry returns ErrEntryNotFound.
func (d *Datastore) Get(ctx context.Context, namespace, key string, out any) (Version, error) {
	var version Version

	err := d.observe(namespace, "get", func() error {
		resp, err := d.client.do(ctx, http.MethodGet, d.entryURL(namespace, key, nil), nil, nil)
		if err != nil {
			return err
		}

		switch resp.status {
		case http.StatusOK:
		case http.StatusNotFound:
			return ErrEntryNotFound
		default:
			return statusError(resp)
		}

		if err := sonic.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("failed to decode entry %s/%s: %w", namespace, key, err)
		}

		version = Version(resp.header.Get(entryVersionHeader))

		return nil
	})

	return version, err
}

// Put replaces the entry at (namespace, key) with the JSON encoding of value
// and returns the new version.
func (d *Datastore) Put(
	ctx context.Context, namespace, key string, value any, opts PutOptions,
) (Version, error) {
	body, err := sonic.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode entry %s/%s: %w", namespace, key, err)
	}

	query := url.Values{}
	if opts.MatchVersion != "" {
		query.Set("matchVersion", string(opts.MatchVersion))
	}

	if opts.ExclusiveCreate {
		query.Set("exclusiveCreate", "true")
	}

	var version Version

	err = d.observe(namespace, "put", func() error {
		resp, err := d.client.do(ctx, http.MethodPost, d.entryURL(namespace, key, query), body, map[string]string{
			"Content-Type": "application/json",
			"content-md5":  ContentMD5(body),
		})
		if err != nil {
			return err
		}

		switch resp.status {
		case http.StatusOK:
		case http.StatusConflict, http.StatusPreconditionFailed:
			return ErrVersionConflict
		default:
			return statusError(resp)
		}

		var entry struct {
			Version string `json:"version"`
		}

		if len(resp.body) > 0 {
			if err := sonic.Unmarshal(resp.body, &entry); err != nil {
				d.logger.Debug("Failed to decode put response", zap.Error(err))
			}
		}

		version = Version(entry.Version)
		if version == "" {
			version = Version(resp.header.Get(entryVersionHeader))
		}

		return nil
	})

	return version, err
}

// Delete removes the entry at (namespace, key).
// A missing entry returns ErrEntryNotFound.
func (d *Datastore) Delete(ctx context.Context, namespace, key string) error {
	return d.observe(namespace, "delete", func() error {
		resp, err := d.client.do(ctx, http.MethodDelete, d.entryURL(namespace, key, nil), nil, nil)
		if err != nil {
			return err
		}

		switch resp.status {
		case http.StatusOK, http.StatusNoContent:
			return nil
		case http.StatusNotFound:
			return ErrEntryNotFound
		default:
			return statusError(resp)
		}
	})
}

// ContentMD5 returns the base64 MD5 digest the datastore API expects for body.
func ContentMD5(body []byte) string {
	sum := md5.Sum(body) //nolint:gosec // integrity check, not security
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (d *Datastore) entryURL(namespace, key string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}

	query.Set("datastoreName", namespace)
	query.Set("entryKey", key)

	return d.baseURL + "/universes/" + strconv.FormatUint(d.client.universeID, 10) +
		"/standard-datastores/datastore/entries/entry?" + query.Encode()
}

// observe records the outcome and latency of one datastore call.
func (d *Datastore) observe(namespace, op string, fn func() error) error {
	start := time.Now()
	err := fn()

	metrics.StoreLatency.WithLabelValues(namespace, op).Observe(time.Since(start).Seconds())

	result := metrics.ResultOK

	switch {
	case err == nil:
	case errors.Is(err, ErrEntryNotFound):
		result = metrics.ResultNotFound
	case errors.Is(err, ErrVersionConflict):
		result = metrics.ResultConflict
	default:
		result = metrics.ResultError
	}

	metrics.StoreOperations.WithLabelValues(namespace, op, result).Inc()

	return err
}
