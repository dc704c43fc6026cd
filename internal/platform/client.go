// Package platform is the HTTP client for the billing platform API that owns
// customers, collections and invoices. This service only validates rows and
// hands them over; every business rule past that lives on the platform.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dukerupert/binbill/internal/domain"
)

const defaultTimeout = 60 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Config holds connection settings for the platform API.
type Config struct {
	BaseURL string
	Token   string
	PSPID   string
	Timeout time.Duration
}

// Client calls the platform API. Requests are never retried: a failed bulk
// enrollment is surfaced to the operator who decides whether to try again.
type Client struct {
	baseURL string
	token   string
	pspID   string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a platform client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		pspID:   cfg.PSPID,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "platform").Logger(),
	}
}

type enrollCustomer struct {
	FullName     string  `json:"fullName"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email,omitempty"`
	Address      string  `json:"address,omitempty"`
	City         string  `json:"city,omitempty"`
	State        string  `json:"state,omitempty"`
	LGA          string  `json:"lga,omitempty"`
	PreviousDebt float64 `json:"previousDebt"`
}

type enrollRequest struct {
	Customers []enrollCustomer `json:"customers"`
}

// BulkEnroll sends every record to the collection in one request and returns
// the platform's per-row verdict.
func (c *Client) BulkEnroll(ctx context.Context, collectionID string, records []domain.CustomerRecord) (*domain.BatchResult, error) {
	const op = "platform.bulkEnroll"

	payload := enrollRequest{Customers: make([]enrollCustomer, len(records))}
	for i, r := range records {
		debt := r.PreviousDebt.InexactFloat64()
		if math.IsInf(debt, 0) {
			return nil, domain.Errorf(domain.EINVALID, op, "record %d (%s): previous debt is out of range", i+1, r.FullName)
		}
		payload.Customers[i] = enrollCustomer{
			FullName:     r.FullName,
			Phone:        r.Phone,
			Email:        r.Email,
			Address:      r.Address,
			City:         r.City,
			State:        r.State,
			LGA:          r.LGA,
			PreviousDebt: debt,
		}
	}

	path := "/collections/" + url.PathEscape(collectionID) + "/customers/bulk"
	body, err := c.do(ctx, op, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	result, err := decodeBatchResult(body)
	if err != nil {
		return nil, domain.Unavailable(&TransportError{Method: http.MethodPost, Path: path, Err: err}, op, "")
	}

	c.logger.Info().
		Str("collection_id", collectionID).
		Int("sent", len(records)).
		Int("success", result.SuccessCount).
		Int("failed", result.FailedCount).
		Msg("bulk enrollment completed")

	return result, nil
}

// ListCollections returns the collections customers can be enrolled into.
func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	const op = "platform.listCollections"

	body, err := c.do(ctx, op, http.MethodGet, "/collections", nil)
	if err != nil {
		return nil, err
	}

	collections, err := DecodeList[domain.Collection](body)
	if err != nil {
		return nil, domain.Unavailable(&TransportError{Method: http.MethodGet, Path: "/collections", Err: err}, op, "")
	}
	return collections, nil
}

// do performs a request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.pspID != "" {
		req.Header.Set("X-PSP-ID", c.pspID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("platform request failed")
		return nil, domain.Unavailable(&TransportError{Method: method, Path: path, Err: err}, op, "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.Unavailable(&TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}, op, "")
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("platform request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg := errorMessage(body); msg != "" {
			return nil, &domain.Error{
				Code:    codeForStatus(resp.StatusCode),
				Op:      op,
				Message: msg,
				Err:     &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: errors.New(msg)},
			}
		}
		return nil, domain.Unavailable(&TransportError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}, op, "")
	}

	return body, nil
}

// errorMessage pulls a human readable reason out of an error body.
// Accepted shapes: {"message": "..."}, {"error": "..."}, {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var e struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if len(e.Error) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}
