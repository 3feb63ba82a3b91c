package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pringgosatmoko/Creativestudio/internal/generate"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{BaseURL: serverURL})
}

func TestSubmitImageReturnsInlineArtifact(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "key-1" {
			t.Errorf("credential header = %q, want key-1", got)
		}
		if r.URL.Path != "/models/gemini-2.5-flash-image-preview:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"` + encoded + `"}}]}}]}`))
	}))
	defer server.Close()

	handle, err := testClient(server.URL).Submit(context.Background(), generate.Request{
		Kind:   models.KindImage,
		Prompt: "a lighthouse at dusk",
	}, "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handle.Done || handle.Artifact == nil {
		t.Fatal("image submit should complete inline")
	}
	if string(handle.Artifact.Data) != "png-bytes" {
		t.Errorf("artifact data = %q", handle.Artifact.Data)
	}
	if handle.Artifact.MIMEType != "image/png" {
		t.Errorf("artifact mime = %q", handle.Artifact.MIMEType)
	}
}

func TestSubmitMapsRateLimitToQuotaClass(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded"}}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Submit(context.Background(), generate.Request{Kind: models.KindImage}, "key-1")
	if !errors.Is(err, generate.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestSubmitMapsDeadCredentialToQuotaClass(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"status":"PERMISSION_DENIED","message":"Requested entity was not found."}}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Submit(context.Background(), generate.Request{Kind: models.KindImage}, "key-1")
	if !errors.Is(err, generate.ErrCredentialInvalid) {
		t.Fatalf("error = %v, want ErrCredentialInvalid", err)
	}
}

func TestSubmitMapsOtherFailuresToAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"Prompt was blocked."}}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Submit(context.Background(), generate.Request{Kind: models.KindImage}, "key-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if generate.IsQuotaClass(err) {
		t.Error("invalid argument must not trigger rotation")
	}
	if apiErr.Status != "INVALID_ARGUMENT" {
		t.Errorf("status = %q", apiErr.Status)
	}
}

func TestVideoLifecycle(t *testing.T) {
	polls := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/models/veo-3.0-generate-preview:predictLongRunning":
			w.Write([]byte(`{"name":"operations/op-77"}`))
		case "/operations/op-77":
			polls++
			if polls < 2 {
				w.Write([]byte(`{"name":"operations/op-77","done":false}`))
				return
			}
			w.Write([]byte(`{"name":"operations/op-77","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"` + server.URL + `/files/v1"}}]}}}`))
		case "/files/v1":
			if got := r.URL.Query().Get("key"); got != "key-2" {
				t.Errorf("fetch key param = %q, want key-2", got)
			}
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("mp4-bytes"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(server.URL)
	ctx := context.Background()

	handle, err := client.Submit(ctx, generate.Request{Kind: models.KindVideo, Prompt: "waves"}, "key-2")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.Done || handle.ID != "operations/op-77" {
		t.Fatalf("handle = %+v", handle)
	}

	status, err := client.Poll(ctx, handle, "key-2")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Done {
		t.Fatal("first poll should be pending")
	}

	status, err = client.Poll(ctx, handle, "key-2")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !status.Done || status.Location == "" {
		t.Fatalf("status = %+v", status)
	}

	artifact, err := client.Fetch(ctx, status.Location, "key-2")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(artifact.Data) != "mp4-bytes" || artifact.MIMEType != "video/mp4" {
		t.Errorf("artifact = %q (%s)", artifact.Data, artifact.MIMEType)
	}
}

func TestPollSurfacesOperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"operations/op-9","done":true,"error":{"code":8,"status":"RESOURCE_EXHAUSTED","message":"You exceeded your current quota"}}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Poll(context.Background(), generate.JobHandle{ID: "operations/op-9"}, "key-1")
	if !errors.Is(err, generate.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestSubmitVoiceSetsAudioModality(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("wav-bytes"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			GenerationConfig *struct {
				ResponseModalities []string `json:"responseModalities"`
				SpeechConfig       *struct {
					VoiceConfig struct {
						PrebuiltVoiceConfig struct {
							VoiceName string `json:"voiceName"`
						} `json:"prebuiltVoiceConfig"`
					} `json:"voiceConfig"`
				} `json:"speechConfig"`
			} `json:"generationConfig"`
		}
		if err := decodeJSONBody(r, &payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.GenerationConfig == nil || len(payload.GenerationConfig.ResponseModalities) != 1 || payload.GenerationConfig.ResponseModalities[0] != "AUDIO" {
			t.Error("voice request missing AUDIO modality")
		}
		if payload.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
			t.Error("voice request missing voice preset")
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"` + encoded + `"}}]}}]}`))
	}))
	defer server.Close()

	handle, err := testClient(server.URL).Submit(context.Background(), generate.Request{
		Kind:   models.KindVoice,
		Prompt: "read this aloud",
		Voice:  "Kore",
	}, "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(handle.Artifact.Data) != "wav-bytes" {
		t.Errorf("artifact data = %q", handle.Artifact.Data)
	}
}

func decodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
