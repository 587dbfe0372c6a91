package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type stubChat struct {
	reply string
	err   error
}

func (s *stubChat) New(_ context.Context, _ openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.reply}},
		},
	}, nil
}

func TestExtractJSONPlainObject(t *testing.T) {
	e := &Extractor{chat: &stubChat{reply: `{"echo_lvef": 45.5}`}, model: "gpt-4o-mini"}

	fields, err := e.ExtractJSON(context.Background(), []byte("doc"), "application/pdf", "prompt")
	if err != nil {
		t.Fatalf("ExtractJSON() error: %v", err)
	}
	if v, ok := Number(fields, "echo_lvef"); !ok || v != 45.5 {
		t.Errorf("echo_lvef = %v (%v), want 45.5", v, ok)
	}
}

func TestExtractJSONSalvagesWrappedReply(t *testing.T) {
	reply := "Here is the result:\n```json\n{\"tsh\": 2.5, \"homocysteine\": null, \"bnp\": 560}\n```"
	e := &Extractor{chat: &stubChat{reply: reply}, model: "gpt-4o-mini"}

	fields, err := e.ExtractJSON(context.Background(), []byte("doc"), "image/png", "prompt")
	if err != nil {
		t.Fatalf("ExtractJSON() error: %v", err)
	}
	if v, ok := Number(fields, "tsh"); !ok || v != 2.5 {
		t.Errorf("tsh = %v (%v), want 2.5", v, ok)
	}
	if _, ok := Number(fields, "homocysteine"); ok {
		t.Error("null field should not coerce to a number")
	}
	if _, ok := Number(fields, "missing"); ok {
		t.Error("absent field should not coerce to a number")
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	e := &Extractor{chat: &stubChat{reply: "I could not read the document."}, model: "gpt-4o-mini"}

	if _, err := e.ExtractJSON(context.Background(), []byte("doc"), "image/png", "prompt"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
}

func TestExtractJSONEmptyDocument(t *testing.T) {
	e := &Extractor{chat: &stubChat{reply: "{}"}, model: "gpt-4o-mini"}

	if _, err := e.ExtractJSON(context.Background(), nil, "image/png", "prompt"); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestParseJSONObjectMalformed(t *testing.T) {
	if _, err := ParseJSONObject("{not json}"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
}

func TestNumberFromString(t *testing.T) {
	fields := map[string]interface{}{"lvef": "38.0"}
	if v, ok := Number(fields, "lvef"); !ok || v != 38.0 {
		t.Errorf("lvef = %v (%v), want 38", v, ok)
	}
}
