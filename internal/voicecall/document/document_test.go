package document

import (
	"encoding/xml"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type xmlSay struct {
	Voice    string `xml:"voice,attr"`
	Language string `xml:"language,attr"`
	Text     string `xml:",chardata"`
}

type xmlGather struct {
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Language      string   `xml:"language,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
	Says          []xmlSay `xml:"Say"`
}

type xmlResponse struct {
	XMLName xml.Name    `xml:"Response"`
	Says    []xmlSay    `xml:"Say"`
	Gathers []xmlGather `xml:"Gather"`
	Hangups []struct{}  `xml:"Hangup"`
}

func parse(t *testing.T, out string) xmlResponse {
	t.Helper()
	var resp xmlResponse
	require.NoError(t, xml.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestRender_Gather(t *testing.T) {
	doc := New(NewSpeechGather("/handle_response", "en-US", Say{Text: "Ask away."}))

	out, err := doc.Render()
	require.NoError(t, err)

	resp := parse(t, out)
	require.Len(t, resp.Gathers, 1)
	assert.Empty(t, resp.Says)

	g := resp.Gathers[0]
	assert.Equal(t, "speech", g.Input)
	assert.Equal(t, "/handle_response", g.Action)
	assert.Equal(t, "POST", g.Method)
	assert.Equal(t, "en-US", g.Language)
	assert.Equal(t, "auto", g.SpeechTimeout)
	require.Len(t, g.Says, 1)
	assert.Equal(t, "Ask away.", g.Says[0].Text)
}

func TestRender_SayWithVoice(t *testing.T) {
	out, err := New(Say{Text: "Rapamycin inhibits mTOR.", Voice: "alice"}).Render()
	require.NoError(t, err)

	resp := parse(t, out)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, "alice", resp.Says[0].Voice)
	assert.Equal(t, "Rapamycin inhibits mTOR.", resp.Says[0].Text)
	assert.Empty(t, resp.Gathers)
}

func TestRender_EscapesText(t *testing.T) {
	text := `<Hangup/> & "quoted" </Say><Play>x</Play>`

	out, err := New(Say{Text: text}).Render()
	require.NoError(t, err)

	resp := parse(t, out)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, text, resp.Says[0].Text)
	assert.Empty(t, resp.Hangups)
}

func TestRender_SayAndHangup(t *testing.T) {
	out, err := New(Say{Text: "Goodbye."}, Hangup{}).Render()
	require.NoError(t, err)

	resp := parse(t, out)
	assert.Len(t, resp.Says, 1)
	assert.Len(t, resp.Hangups, 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{name: "empty", doc: New(), wantErr: ErrEmptyDocument},
		{name: "empty say", doc: New(Say{}), wantErr: ErrSayEmptyMessage},
		{name: "gather without action", doc: New(Gather{Prompt: Say{Text: "x"}}), wantErr: ErrGatherNoAction},
		{name: "gather without prompt", doc: New(NewSpeechGather("/r", "en-US", Say{})), wantErr: ErrGatherNoPrompt},
		{name: "valid", doc: New(Say{Text: "ok"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			_, renderErr := tt.doc.Render()
			assert.Error(t, renderErr)
		})
	}
}

func TestAccessors(t *testing.T) {
	doc := New(
		NewSpeechGather("/r", "en-US", Say{Text: "prompt"}),
		Say{Text: "one"},
		Hangup{},
	)

	assert.Len(t, doc.Gathers(), 1)
	require.Len(t, doc.Says(), 1)
	assert.Equal(t, "one", doc.Says()[0].Text)
	assert.True(t, doc.HasHangup())
	assert.False(t, New(Say{Text: "x"}).HasHangup())
}

func TestFallback(t *testing.T) {
	out := Fallback("Sorry & goodbye <now>")

	resp := parse(t, out)
	require.Len(t, resp.Says, 1)
	assert.Equal(t, "Sorry & goodbye <now>", resp.Says[0].Text)
}
