// Package remote implements the HTTP client for the document-store API:
// find/insertOne/updateOne/deleteOne against POST /action/{op} endpoints
// authenticated with an api-key header.
//
// The client owns an explicit connection-state value. Every operation can
// fall back to the local record store when the remote side fails, in which
// case a result matching the shape of a successful call is synthesized so
// repositories never have to branch on connectivity.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
)

// Config holds the connection settings for the remote document store.
type Config struct {
	// Endpoint is the base URL, e.g. "https://data.example.com/api/v1".
	Endpoint string
	// APIKey authenticates every request via the api-key header.
	APIKey string
	// DataSource and Database scope every operation payload.
	DataSource string
	Database   string
	// LocalFallback enables synthesized results backed by the local store
	// when the remote call fails. When false, failures propagate.
	LocalFallback bool
	// Timeout bounds each HTTP request. Zero means 15 seconds.
	Timeout time.Duration
}

// Client talks to the remote document store and tracks whether the remote
// side is presumed reachable.
type Client struct {
	cfg   Config
	hc    *http.Client
	local *localstore.Store
	log   logging.Logger

	mu        sync.Mutex
	connected bool
}

// FindResult is the response shape of a find operation.
type FindResult struct {
	Documents []models.Document `json:"documents"`
}

// InsertResult is the response shape of an insertOne operation. IDs of the
// form "local_<uuid>" indicate a synthesized local-fallback insert.
type InsertResult struct {
	InsertedID string `json:"insertedId"`
}

// UpdateResult is the response shape of an updateOne operation.
type UpdateResult struct {
	ModifiedCount int `json:"modifiedCount"`
}

// DeleteResult is the response shape of a deleteOne operation.
type DeleteResult struct {
	DeletedCount int `json:"deletedCount"`
}

type actionRequest struct {
	DataSource string          `json:"dataSource"`
	Database   string          `json:"database"`
	Collection string          `json:"collection"`
	Filter     models.Document `json:"filter,omitempty"`
	Document   models.Document `json:"document,omitempty"`
	Update     models.Document `json:"update,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

// New returns a Client over the given settings. The local store may not be
// nil when cfg.LocalFallback is set.
func New(cfg Config, local *localstore.Store, log logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:   cfg,
		hc:    &http.Client{Timeout: timeout},
		local: local,
		log:   log,
	}
}

// Connected reports the current connection state. The flag is owned by the
// client and only changes as a result of its own calls.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Connect probes the remote store with a bounded find against the users
// collection and records the outcome in the connection state. A failed
// probe returns an error but leaves the client usable in local-only mode.
func (c *Client) Connect(ctx context.Context) error {
	var out FindResult
	err := c.do(ctx, "find", actionRequest{
		DataSource: c.cfg.DataSource,
		Database:   c.cfg.Database,
		Collection: models.CollectionUsers,
		Limit:      1,
	}, &out, false)
	if err != nil {
		c.setConnected(false)
		return fmt.Errorf("connect probe: %w", err)
	}
	c.setConnected(true)
	return nil
}

// Find returns the documents matching filter. On remote failure with
// fallback enabled, the local collection is filtered instead.
func (c *Client) Find(ctx context.Context, collection string, filter models.Document) (*FindResult, error) {
	var out FindResult
	err := c.do(ctx, "find", c.request(collection, func(r *actionRequest) { r.Filter = filter }), &out, true)
	if err == nil {
		c.setConnected(true)
		return &out, nil
	}
	c.setConnected(false)
	if !c.cfg.LocalFallback {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	c.log.Warn(ctx, "find failed, serving local collection", "collection", collection, "error", err)
	docs := make([]models.Document, 0)
	for _, d := range c.local.GetAll(collection) {
		if MatchFilter(d, filter) {
			docs = append(docs, d)
		}
	}
	return &FindResult{Documents: docs}, nil
}

// InsertOne stores a document remotely. On remote failure with fallback
// enabled, a synthetic insertedId with a "local_" prefix is returned; the
// caller is responsible for mirroring the document into the local store.
func (c *Client) InsertOne(ctx context.Context, collection string, doc models.Document) (*InsertResult, error) {
	var out InsertResult
	err := c.do(ctx, "insertOne", c.request(collection, func(r *actionRequest) { r.Document = doc }), &out, true)
	if err == nil {
		c.setConnected(true)
		return &out, nil
	}
	c.setConnected(false)
	if !c.cfg.LocalFallback {
		return nil, fmt.Errorf("insertOne %s: %w", collection, err)
	}
	c.log.Warn(ctx, "insertOne failed, synthesizing local result", "collection", collection, "error", err)
	return &InsertResult{InsertedID: "local_" + uuid.NewString()}, nil
}

// UpdateOne applies an update to the first matching document. The fallback
// result is optimistic: it reports one modified document without verifying
// local state, since the caller also performs the local mutation.
func (c *Client) UpdateOne(ctx context.Context, collection string, filter, update models.Document) (*UpdateResult, error) {
	var out UpdateResult
	err := c.do(ctx, "updateOne", c.request(collection, func(r *actionRequest) {
		r.Filter = filter
		r.Update = update
	}), &out, true)
	if err == nil {
		c.setConnected(true)
		return &out, nil
	}
	c.setConnected(false)
	if !c.cfg.LocalFallback {
		return nil, fmt.Errorf("updateOne %s: %w", collection, err)
	}
	c.log.Warn(ctx, "updateOne failed, synthesizing local result", "collection", collection, "error", err)
	return &UpdateResult{ModifiedCount: 1}, nil
}

// DeleteOne removes the first matching document. The fallback result is
// optimistic, mirroring UpdateOne.
func (c *Client) DeleteOne(ctx context.Context, collection string, filter models.Document) (*DeleteResult, error) {
	var out DeleteResult
	err := c.do(ctx, "deleteOne", c.request(collection, func(r *actionRequest) { r.Filter = filter }), &out, true)
	if err == nil {
		c.setConnected(true)
		return &out, nil
	}
	c.setConnected(false)
	if !c.cfg.LocalFallback {
		return nil, fmt.Errorf("deleteOne %s: %w", collection, err)
	}
	c.log.Warn(ctx, "deleteOne failed, synthesizing local result", "collection", collection, "error", err)
	return &DeleteResult{DeletedCount: 1}, nil
}

func (c *Client) request(collection string, mutate func(*actionRequest)) actionRequest {
	r := actionRequest{
		DataSource: c.cfg.DataSource,
		Database:   c.cfg.Database,
		Collection: collection,
	}
	mutate(&r)
	return r
}

// do performs one action call. On a 401 it reconnects and retries exactly
// once; any further failure surfaces to the caller.
func (c *Client) do(ctx context.Context, action string, req actionRequest, out any, allowRetry bool) error {
	status, body, err := c.post(ctx, action, req)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && allowRetry {
		if err := c.Connect(ctx); err != nil {
			return fmt.Errorf("%w: reconnect failed: %w", common.ErrUnauthorized, err)
		}
		status, body, err = c.post(ctx, action, req)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return fmt.Errorf("%s returned status %d: %w", action, status, common.ErrRemoteUnavailable)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s response malformed: %w", action, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, action string, req actionRequest) (int, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s request: %w", action, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/action/"+action, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(common.APIKeyHeaderName, c.cfg.APIKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", action, err)
	}
	return resp.StatusCode, body, nil
}
