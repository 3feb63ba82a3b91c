// Package gemini implements the generation provider boundary against the
// Google Generative Language API. Image, voice and studio requests complete
// synchronously through generateContent; video runs as a long-running
// operation that is polled and fetched afterwards.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pringgosatmoko/Creativestudio/internal/generate"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config holds the Gemini client settings. Model names default to the
// current preview models when left empty.
type Config struct {
	BaseURL     string
	ImageModel  string
	VideoModel  string
	VoiceModel  string
	StudioModel string
	Timeout     time.Duration
}

// Client talks to the Generative Language API. It is safe for concurrent
// use; the credential is supplied per call so the rotation layer above can
// swap keys between attempts.
type Client struct {
	client  *http.Client
	baseURL string
	models  map[models.OperationKind]string
}

// NewClient creates a Gemini client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	modelFor := func(configured, fallback string) string {
		if configured != "" {
			return configured
		}
		return fallback
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		models: map[models.OperationKind]string{
			models.KindImage:  modelFor(cfg.ImageModel, "gemini-2.5-flash-image-preview"),
			models.KindVideo:  modelFor(cfg.VideoModel, "veo-3.0-generate-preview"),
			models.KindVoice:  modelFor(cfg.VoiceModel, "gemini-2.5-flash-preview-tts"),
			models.KindStudio: modelFor(cfg.StudioModel, "gemini-2.5-flash-image-preview"),
		},
	}
}

// APIError is a non-quota provider failure carrying the upstream status.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: %s (%d): %s", e.Status, e.StatusCode, e.Message)
}

// Submit dispatches one generation request. Video returns a pending handle
// to be polled; every other kind completes inline.
func (c *Client) Submit(ctx context.Context, req generate.Request, credential string) (generate.JobHandle, error) {
	model, ok := c.models[req.Kind]
	if !ok {
		return generate.JobHandle{}, fmt.Errorf("gemini: unsupported kind %q", req.Kind)
	}
	if req.Kind == models.KindVideo {
		return c.submitVideo(ctx, model, req, credential)
	}
	return c.generateContent(ctx, model, req, credential)
}

// Poll checks one long-running operation.
func (c *Client) Poll(ctx context.Context, handle generate.JobHandle, credential string) (generate.JobStatus, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+handle.ID, nil, credential)
	if err != nil {
		return generate.JobStatus{}, err
	}

	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return generate.JobStatus{}, fmt.Errorf("gemini: decode operation: %w", err)
	}
	if op.Error != nil {
		return generate.JobStatus{}, mapStatusError(op.Error.Code, op.Error.Status, op.Error.Message)
	}
	if !op.Done {
		return generate.JobStatus{}, nil
	}

	uri := op.videoURI()
	if uri == "" {
		return generate.JobStatus{}, &APIError{Status: "INTERNAL", Message: "operation finished without a video uri"}
	}
	return generate.JobStatus{Done: true, Location: uri}, nil
}

// Fetch downloads a finished artifact. The file endpoint authenticates via
// a key query parameter rather than a header.
func (c *Client) Fetch(ctx context.Context, location, credential string) (generate.Artifact, error) {
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location+sep+"key="+credential, nil)
	if err != nil {
		return generate.Artifact{}, fmt.Errorf("gemini: create fetch request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return generate.Artifact{}, fmt.Errorf("gemini: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return generate.Artifact{}, mapHTTPError(resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return generate.Artifact{}, fmt.Errorf("gemini: read artifact: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "video/mp4"
	}
	return generate.Artifact{Kind: models.KindVideo, MIMEType: mime, Data: data, URI: location}, nil
}

func (c *Client) generateContent(ctx context.Context, model string, req generate.Request, credential string) (generate.JobHandle, error) {
	payload := contentRequest{
		Contents: []content{{Parts: buildParts(req)}},
	}
	if req.Kind == models.KindVoice {
		payload.GenerationConfig = &generationConfig{
			ResponseModalities: []string{"AUDIO"},
		}
		if req.Voice != "" {
			payload.GenerationConfig.SpeechConfig = &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: req.Voice}},
			}
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	body, err := c.do(ctx, http.MethodPost, url, payload, credential)
	if err != nil {
		return generate.JobHandle{}, err
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return generate.JobHandle{}, fmt.Errorf("gemini: decode response: %w", err)
	}

	artifact, err := resp.artifact(req.Kind)
	if err != nil {
		return generate.JobHandle{}, err
	}
	return generate.JobHandle{Done: true, Artifact: artifact}, nil
}

func (c *Client) submitVideo(ctx context.Context, model string, req generate.Request, credential string) (generate.JobHandle, error) {
	instance := videoInstance{Prompt: req.Prompt}
	if len(req.SourceImage) > 0 {
		instance.Image = &inlineBlob{
			MIMEType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(req.SourceImage),
		}
	}
	payload := videoRequest{
		Instances: []videoInstance{instance},
		Parameters: &videoParameters{
			AspectRatio: req.AspectRatio,
			Resolution:  req.Resolution,
		},
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, model)
	body, err := c.do(ctx, http.MethodPost, url, payload, credential)
	if err != nil {
		return generate.JobHandle{}, err
	}

	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return generate.JobHandle{}, fmt.Errorf("gemini: decode operation: %w", err)
	}
	if op.Name == "" {
		return generate.JobHandle{}, &APIError{Status: "INTERNAL", Message: "missing operation name"}
	}
	return generate.JobHandle{ID: op.Name}, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload interface{}, credential string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("gemini: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", credential)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(resp.StatusCode, body)
	}
	return body, nil
}

// mapHTTPError classifies upstream failures. Rate limiting and rejected
// credentials are quota-class so the caller rotates; everything else is a
// plain API error.
func mapHTTPError(statusCode int, body []byte) error {
	var envelope struct {
		Error *apiStatus `json:"error"`
	}
	status := ""
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		status = envelope.Error.Status
		message = envelope.Error.Message
	}
	return mapStatusError(statusCode, status, message)
}

func mapStatusError(statusCode int, status, message string) error {
	switch {
	case statusCode == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %s", generate.ErrRateLimited, message)
	case strings.Contains(message, "Requested entity was not found"),
		strings.Contains(message, "API key not valid"),
		strings.Contains(message, "API key expired"):
		return fmt.Errorf("%w: %s", generate.ErrCredentialInvalid, message)
	default:
		return &APIError{StatusCode: statusCode, Status: status, Message: message}
	}
}

func buildParts(req generate.Request) []part {
	parts := []part{{Text: req.Prompt}}
	if len(req.SourceImage) > 0 {
		parts = append(parts, part{
			InlineData: &inlineBlob{
				MIMEType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(req.SourceImage),
			},
		})
	}
	return parts
}

type contentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineBlob `json:"inlineData,omitempty"`
}

type inlineBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type contentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// artifact extracts the first inline blob plus any text from a synchronous
// response.
func (r *contentResponse) artifact(kind models.OperationKind) (*generate.Artifact, error) {
	if len(r.Candidates) == 0 {
		return nil, &APIError{Status: "INTERNAL", Message: "response has no candidates"}
	}
	artifact := &generate.Artifact{Kind: kind}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Text != "" && artifact.Text == "" {
			artifact.Text = p.Text
		}
		if p.InlineData != nil && len(artifact.Data) == 0 {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: decode inline data: %w", err)
			}
			artifact.Data = data
			artifact.MIMEType = p.InlineData.MIMEType
		}
	}
	if len(artifact.Data) == 0 && artifact.Text == "" {
		return nil, &APIError{Status: "INTERNAL", Message: "response has no usable parts"}
	}
	return artifact, nil
}

type videoRequest struct {
	Instances  []videoInstance  `json:"instances"`
	Parameters *videoParameters `json:"parameters,omitempty"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *inlineBlob `json:"image,omitempty"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type operationResponse struct {
	Name     string     `json:"name"`
	Done     bool       `json:"done"`
	Error    *apiStatus `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

func (o *operationResponse) videoURI() string {
	if o.Response == nil {
		return ""
	}
	samples := o.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}
