package handler

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"voice-qa-server/internal/answer"
	"voice-qa-server/internal/config"
	"voice-qa-server/internal/observability"
	"voice-qa-server/internal/store"
	"voice-qa-server/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendFunc func(ctx context.Context, question string) answer.Result

func (f backendFunc) Answer(ctx context.Context, question string) answer.Result {
	return f(ctx, question)
}

type fakeRecorder struct {
	mu    sync.Mutex
	turns []store.CallTurn
}

func (r *fakeRecorder) Record(ctx context.Context, turn store.CallTurn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, turn)
}

func (r *fakeRecorder) recorded() []store.CallTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.CallTurn(nil), r.turns...)
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Says    []struct {
		Text     string `xml:",chardata"`
		Voice    string `xml:"voice,attr"`
		Language string `xml:"language,attr"`
	} `xml:"Say"`
	Gathers []struct {
		Action string `xml:"action,attr"`
		Input  string `xml:"input,attr"`
		Method string `xml:"method,attr"`
		Say    string `xml:"Say"`
	} `xml:"Gather"`
	Hangups []struct{} `xml:"Hangup"`
}

func testVoiceConfig() config.VoiceConfig {
	return config.VoiceConfig{
		Language:        "en-US",
		VoiceProfile:    "alice",
		GreetingMessage: "Hello, please ask your question about Rapamycin.",
		PromptMessage:   "Please ask your question about Rapamycin.",
		NoSpeechMessage: "I didn't catch that. Please call again and try your question.",
		ApologyMessage:  "I apologize, but I encountered an error processing your request.",
		MaxReprompts:    2,
	}
}

func setupRouter(t *testing.T, backend processor.AnswerBackend) (*gin.Engine, *fakeRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := &fakeRecorder{}
	h := New(processor.NewOrchestrator(backend), recorder, testVoiceConfig(), observability.NewNopLogger())

	router := gin.New()
	router.POST(PathVoice, h.HandleVoice)
	router.POST(PathHandleResponse, h.HandleResponse(PathHandleResponse))
	router.POST(PathProcessSpeech, h.HandleResponse(PathProcessSpeech))
	return router, recorder
}

func postForm(t *testing.T, router *gin.Engine, target string, form url.Values) (*httptest.ResponseRecorder, twimlResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed twimlResponse
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &parsed), w.Body.String())
	return w, parsed
}

func TestHandleVoice_FirstContactGathers(t *testing.T) {
	router, recorder := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
		t.Fatalf("backend must not be called, got %q", q)
		return answer.Result{}
	}))

	w, resp := postForm(t, router, PathVoice, url.Values{"CallSid": {"CA1"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	assert.Empty(t, resp.Says)
	require.Len(t, resp.Gathers, 1)
	assert.Equal(t, "/handle_response?attempt=1", resp.Gathers[0].Action)
	assert.Equal(t, "speech", resp.Gathers[0].Input)
	assert.Equal(t, "POST", resp.Gathers[0].Method)
	assert.Equal(t, testVoiceConfig().GreetingMessage, resp.Gathers[0].Say)

	turns := recorder.recorded()
	require.Len(t, turns, 1)
	assert.Equal(t, "CA1", turns[0].CallSID)
	assert.Equal(t, "voice", turns[0].Route)
	assert.Equal(t, string(processor.OutcomeReprompt), turns[0].Outcome)
}

func TestHandleVoice_SpeechAnsweredDirectly(t *testing.T) {
	router, _ := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
		return answer.Answered("Rapamycin inhibits mTOR.\nIt is taken weekly.")
	}))

	_, resp := postForm(t, router, PathVoice, url.Values{"SpeechResult": {"what is rapamycin"}})

	assert.Empty(t, resp.Gathers)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, "Rapamycin inhibits mTOR.. It is taken weekly.", resp.Says[0].Text)
	assert.Equal(t, "alice", resp.Says[0].Voice)
	assert.Equal(t, "en-US", resp.Says[0].Language)
}

func TestHandleResponse_Routes(t *testing.T) {
	for _, path := range []string{PathHandleResponse, PathProcessSpeech} {
		t.Run(path, func(t *testing.T) {
			var mu sync.Mutex
			var calls []string
			router, recorder := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
				mu.Lock()
				calls = append(calls, q)
				mu.Unlock()
				return answer.Answered("**Yes**, #1 choice")
			}))

			_, resp := postForm(t, router, path+"?attempt=1", url.Values{
				"CallSid":      {"CA9"},
				"SpeechResult": {"  is it safe  "},
				"Confidence":   {"0.91"},
			})

			assert.Equal(t, []string{"is it safe"}, calls)
			require.Len(t, resp.Says, 1)
			assert.Equal(t, "Yes, number1 choice", resp.Says[0].Text)

			turns := recorder.recorded()
			require.Len(t, turns, 1)
			assert.Equal(t, strings.TrimPrefix(path, "/"), turns[0].Route)
			assert.Equal(t, "is it safe", turns[0].Question)
			assert.Equal(t, string(processor.OutcomeAnswered), turns[0].Outcome)
		})
	}
}

func TestHandleResponse_BackendFailureApologizes(t *testing.T) {
	router, recorder := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
		return answer.Failed("backend timed out after 12s")
	}))

	w, resp := postForm(t, router, PathHandleResponse, url.Values{"SpeechResult": {"dose"}})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, testVoiceConfig().ApologyMessage, resp.Says[0].Text)
	assert.NotContains(t, w.Body.String(), "timed out")

	turns := recorder.recorded()
	require.Len(t, turns, 1)
	assert.Equal(t, "backend timed out after 12s", turns[0].FailureReason)
}

func TestHandleResponse_RepromptUntilExhausted(t *testing.T) {
	router, recorder := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
		t.Fatalf("backend must not be called for silence")
		return answer.Result{}
	}))

	_, resp := postForm(t, router, PathHandleResponse+"?attempt=1", url.Values{"SpeechResult": {""}})
	require.Len(t, resp.Gathers, 1)
	assert.Equal(t, "/handle_response?attempt=2", resp.Gathers[0].Action)
	assert.Equal(t, testVoiceConfig().PromptMessage, resp.Gathers[0].Say)

	_, resp = postForm(t, router, resp.Gathers[0].Action, url.Values{})
	require.Len(t, resp.Gathers, 1)
	assert.Equal(t, "/handle_response?attempt=3", resp.Gathers[0].Action)

	_, resp = postForm(t, router, resp.Gathers[0].Action, url.Values{})
	assert.Empty(t, resp.Gathers)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, testVoiceConfig().NoSpeechMessage, resp.Says[0].Text)
	assert.Len(t, resp.Hangups, 1)

	turns := recorder.recorded()
	require.Len(t, turns, 3)
	assert.Equal(t, string(processor.OutcomeHangup), turns[2].Outcome)
	assert.Equal(t, 3, turns[2].Attempt)
}

func TestHandleResponse_MissingAttemptCountsAsFirst(t *testing.T) {
	router, _ := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
		return answer.Failed("unused")
	}))

	_, resp := postForm(t, router, PathProcessSpeech, url.Values{})

	require.Len(t, resp.Gathers, 1)
	assert.Equal(t, "/process_speech?attempt=2", resp.Gathers[0].Action)
}

func TestHandleResponse_MarkupInSpeechIsEscaped(t *testing.T) {
	router, _ := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
		return answer.Answered("You said: " + q)
	}))

	w, resp := postForm(t, router, PathHandleResponse, url.Values{
		"SpeechResult": {`</Say><Hangup/><Say>`},
	})

	assert.Empty(t, resp.Hangups)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, "You said: </Say><Hangup/><Say>", resp.Says[0].Text)
	assert.NotContains(t, w.Body.String(), "<Hangup/><Say>")
}

func TestHandleResponse_PanicFallsBackToApology(t *testing.T) {
	router, _ := setupRouter(t, backendFunc(func(ctx context.Context, q string) answer.Result {
		panic("unexpected")
	}))

	w, resp := postForm(t, router, PathHandleResponse, url.Values{"SpeechResult": {"question"}})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, testVoiceConfig().ApologyMessage, resp.Says[0].Text)
}
