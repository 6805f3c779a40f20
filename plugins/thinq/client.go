package thinq

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joshp123/thinqhome/internal/config"
	"github.com/joshp123/thinqhome/internal/oauth"
	"github.com/joshp123/thinqhome/internal/rate"
)

// Client talks to the LG ThinQ Connect REST API.
type Client struct {
	baseURL  string
	country  string
	clientID string
	apiKey   string

	oauth      *oauth.Manager
	httpClient *http.Client
}

// APIError is the decoded error envelope of a failed call.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("thinq api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("thinq api error %d (%s): %s", e.Status, e.Code, e.Message)
}

var ErrUnauthorized = errors.New("thinq api unauthorized; refresh triggered")

type envelope struct {
	MessageID string          `json:"messageId"`
	Timestamp string          `json:"timestamp"`
	Response  json.RawMessage `json:"response"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DeviceSummary is one entry of the device list.
type DeviceSummary struct {
	DeviceID   string `json:"deviceId"`
	DeviceInfo struct {
		DeviceType string `json:"deviceType"`
		ModelName  string `json:"modelName"`
		Alias      string `json:"alias"`
		Reportable bool   `json:"reportable"`
	} `json:"deviceInfo"`
}

// Profile describes the writable capabilities of an air conditioner.
type Profile struct {
	Property struct {
		AirConJobMode struct {
			CurrentJobMode enumProperty `json:"currentJobMode"`
		} `json:"airConJobMode"`
		AirFlow struct {
			WindStrength enumProperty `json:"windStrength"`
		} `json:"airFlow"`
		Temperature struct {
			TargetTemperature rangeProperty `json:"targetTemperature"`
			Unit              enumProperty  `json:"unit"`
		} `json:"temperature"`
		WindDirection struct {
			RotateUpDown boolProperty `json:"rotateUpDown"`
		} `json:"windDirection"`
	} `json:"property"`
}

type enumProperty struct {
	Type  string `json:"type"`
	Value struct {
		R []string `json:"r"`
		W []string `json:"w"`
	} `json:"value"`
}

type rangeProperty struct {
	Type  string `json:"type"`
	Value struct {
		W struct {
			Min  *float64 `json:"min"`
			Max  *float64 `json:"max"`
			Step *float64 `json:"step"`
		} `json:"w"`
	} `json:"value"`
}

type boolProperty struct {
	Type  string `json:"type"`
	Value struct {
		W []bool `json:"w"`
	} `json:"value"`
}

// DeviceStatus is the state document of an air conditioner.
type DeviceStatus struct {
	AirConJobMode struct {
		CurrentJobMode string `json:"currentJobMode"`
	} `json:"airConJobMode"`
	Operation struct {
		AirConOperationMode string `json:"airConOperationMode"`
	} `json:"operation"`
	Temperature struct {
		CurrentTemperature *float64 `json:"currentTemperature"`
		TargetTemperature  *float64 `json:"targetTemperature"`
		Unit               string   `json:"unit"`
	} `json:"temperature"`
	AirFlow struct {
		WindStrength string `json:"windStrength"`
	} `json:"airFlow"`
	WindDirection struct {
		RotateUpDown *bool `json:"rotateUpDown"`
	} `json:"windDirection"`
}

func NewClient(cfg Config, decl oauth.Declaration, rateDecl rate.Declaration, oauthCfg *config.OAuthConfig) (*Client, error) {
	blobStore, err := oauth.NewS3Store(oauthCfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithStore(cfg, decl, rateDecl, blobStore)
}

func NewClientWithStore(cfg Config, decl oauth.Declaration, rateDecl rate.Declaration, blobStore oauth.BlobStore) (*Client, error) {
	if blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Country == "" {
		return nil, fmt.Errorf("country is required")
	}

	manager, err := oauth.NewManager(decl, cfg.BootstrapFile, blobStore)
	if err != nil {
		return nil, err
	}
	manager.StartWithInterval(context.Background(), cfg.RefreshInterval)

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		country:    cfg.Country,
		clientID:   cfg.ClientID,
		apiKey:     cfg.APIKey,
		oauth:      manager,
		httpClient: rate.WrapHTTP(rateDecl, &http.Client{Timeout: 15 * time.Second}),
	}, nil
}

// Devices lists the appliances registered to the account.
func (c *Client) Devices(ctx context.Context) ([]DeviceSummary, error) {
	var out []DeviceSummary
	if err := c.getJSON(ctx, "/devices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profile returns the capability profile of a device.
func (c *Client) Profile(ctx context.Context, deviceID string) (Profile, error) {
	var out Profile
	if err := c.getJSON(ctx, "/devices/"+url.PathEscape(deviceID)+"/profile", &out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// State returns the decoded state of a device.
func (c *Client) State(ctx context.Context, deviceID string) (DeviceStatus, error) {
	var out DeviceStatus
	if err := c.getJSON(ctx, "/devices/"+url.PathEscape(deviceID)+"/state", &out); err != nil {
		return DeviceStatus{}, err
	}
	return out, nil
}

// StateJSON returns the raw state payload of a device.
func (c *Client) StateJSON(ctx context.Context, deviceID string) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, "/devices/"+url.PathEscape(deviceID)+"/state", nil)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Control sends a partial state document to the device.
func (c *Client) Control(ctx context.Context, deviceID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode control: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/devices/"+url.PathEscape(deviceID)+"/control", body)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// do performs the request and returns the unwrapped response payload.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	accessToken, err := c.oauth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-country", c.country)
	req.Header.Set("x-message-id", newMessageID())
	req.Header.Set("x-service-phase", "OP")
	if c.clientID != "" {
		req.Header.Set("x-client-id", c.clientID)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.oauth.TriggerRefresh(context.Background())
		return nil, ErrUnauthorized
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var env envelope
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if resp.StatusCode >= 300 || env.Error != nil {
		apiErr := APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	return env.Response, nil
}

func newMessageID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return base64.RawURLEncoding.EncodeToString(buf[:])
}
