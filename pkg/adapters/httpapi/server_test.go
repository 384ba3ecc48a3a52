package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/pkg/adapters/httpapi"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	responses []domain.Message
	calls     int
}

func (m *scriptedModel) Invoke(ctx context.Context, transcript []domain.Message, tools []domain.Tool) (domain.Message, error) {
	if m.calls >= len(m.responses) {
		return domain.Message{}, fmt.Errorf("scripted model exhausted")
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(ctx context.Context, call domain.ToolCall) (domain.Message, error) {
	return domain.NewToolMessage("ok", call.ID), nil
}

func (noopDispatcher) Catalog() []domain.Tool { return nil }

func newTestServer(t *testing.T, responses ...domain.Message) *httptest.Server {
	t.Helper()
	agent := rewind.New(&scriptedModel{responses: responses}, noopDispatcher{})
	server := httptest.NewServer(httpapi.NewHandler(agent))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_Run(t *testing.T) {
	server := newTestServer(t, domain.NewAssistantMessage("the answer is 42"))

	resp := postJSON(t, server.URL+"/runs", `{"input": "what is the answer?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		State domain.State `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.State.Messages, 2)
	assert.Equal(t, "the answer is 42", out.State.Messages[1].Content)
}

func TestServer_Run_MissingInput(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Resume_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/runs", `{"resume_checkpoint_id": "ckpt_7"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Resume_UnknownModificationKey(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/runs",
		`{"resume_checkpoint_id": "ckpt_0", "modifications": {"bogus": 1}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Checkpoints(t *testing.T) {
	server := newTestServer(t, domain.NewAssistantMessage("done"))

	resp := postJSON(t, server.URL+"/runs", `{"input": "q"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := http.Get(server.URL + "/checkpoints")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list struct {
		Checkpoints []string `json:"checkpoints"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, []string{"ckpt_0", "ckpt_1"}, list.Checkpoints)

	getResp, err := http.Get(server.URL + "/checkpoints/ckpt_0")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var state domain.State
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&state))
	assert.Len(t, state.Messages, 1)
}

func TestServer_Checkpoint_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/checkpoints/ckpt_9")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
