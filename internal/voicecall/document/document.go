// Package document models the voice-response documents returned to Twilio
// and renders them as TwiML.
package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go/twiml"
)

var (
	ErrEmptyDocument   = errors.New("voice document has no directives")
	ErrGatherNoPrompt  = errors.New("gather directive has no prompt")
	ErrGatherNoAction  = errors.New("gather directive has no callback path")
	ErrSayEmptyMessage = errors.New("say directive has empty text")
)

const (
	InputSpeech       = "speech"
	MethodPOST        = "POST"
	SpeechTimeoutAuto = "auto"
)

// Directive is one verb of a voice document.
type Directive interface {
	element() twiml.Element
	validate() error
}

// Say synthesizes Text. Voice is optional.
type Say struct {
	Text     string
	Voice    string
	Language string
}

func (s Say) element() twiml.Element {
	return &twiml.VoiceSay{
		Message:  s.Text,
		Voice:    s.Voice,
		Language: s.Language,
	}
}

func (s Say) validate() error {
	if s.Text == "" {
		return ErrSayEmptyMessage
	}
	return nil
}

// Gather collects caller speech and posts it to Action.
type Gather struct {
	Input         string
	Action        string
	Method        string
	Language      string
	SpeechTimeout string
	Prompt        Say
}

// NewSpeechGather returns a speech gather that posts back to callbackPath.
func NewSpeechGather(callbackPath, language string, prompt Say) Gather {
	return Gather{
		Input:         InputSpeech,
		Action:        callbackPath,
		Method:        MethodPOST,
		Language:      language,
		SpeechTimeout: SpeechTimeoutAuto,
		Prompt:        prompt,
	}
}

func (g Gather) element() twiml.Element {
	return &twiml.VoiceGather{
		Input:         g.Input,
		Action:        g.Action,
		Method:        g.Method,
		Language:      g.Language,
		SpeechTimeout: g.SpeechTimeout,
		InnerElements: []twiml.Element{g.Prompt.element()},
	}
}

func (g Gather) validate() error {
	if g.Action == "" {
		return ErrGatherNoAction
	}
	if err := g.Prompt.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrGatherNoPrompt, err)
	}
	return nil
}

// Hangup ends the call.
type Hangup struct{}

func (Hangup) element() twiml.Element { return &twiml.VoiceHangup{} }

func (Hangup) validate() error { return nil }

// Document is an ordered list of directives.
type Document struct {
	Directives []Directive
}

// New builds a document from the given directives.
func New(directives ...Directive) Document {
	return Document{Directives: directives}
}

// Validate checks the structural invariants of the document.
func (d Document) Validate() error {
	if len(d.Directives) == 0 {
		return ErrEmptyDocument
	}
	for i, dir := range d.Directives {
		if err := dir.validate(); err != nil {
			return fmt.Errorf("directive %d: %w", i, err)
		}
	}
	return nil
}

// Says returns the top-level Say directives, excluding gather prompts.
func (d Document) Says() []Say {
	var out []Say
	for _, dir := range d.Directives {
		if s, ok := dir.(Say); ok {
			out = append(out, s)
		}
	}
	return out
}

// Gathers returns the Gather directives.
func (d Document) Gathers() []Gather {
	var out []Gather
	for _, dir := range d.Directives {
		if g, ok := dir.(Gather); ok {
			out = append(out, g)
		}
	}
	return out
}

// HasHangup reports whether the document ends the call.
func (d Document) HasHangup() bool {
	for _, dir := range d.Directives {
		if _, ok := dir.(Hangup); ok {
			return true
		}
	}
	return false
}

// Render serializes the document as TwiML.
func (d Document) Render() (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	elements := make([]twiml.Element, 0, len(d.Directives))
	for _, dir := range d.Directives {
		elements = append(elements, dir.element())
	}
	out, err := twiml.Voice(elements)
	if err != nil {
		return "", fmt.Errorf("failed to render twiml: %w", err)
	}
	return out, nil
}

// Fallback returns a minimal TwiML document speaking message. It does not
// depend on the twiml builder so it is usable when Render fails.
func Fallback(message string) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header[:len(xml.Header)-1])
	buf.WriteString("<Response><Say>")
	_ = xml.EscapeText(&buf, []byte(message))
	buf.WriteString("</Say></Response>")
	return buf.String()
}
