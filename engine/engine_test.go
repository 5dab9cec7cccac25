package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend records every request and answers with fn.
type recordingBackend struct {
	requests []Request
	fn       func(Request) (Response, error)
}

func (r *recordingBackend) Exchange(_ context.Context, req Request) (Response, error) {
	r.requests = append(r.requests, req)
	return r.fn(req)
}

func upperBackend() *recordingBackend {
	return &recordingBackend{fn: func(req Request) (Response, error) {
		return Uppercase(context.Background(), req)
	}}
}

func TestTranslateBatchPreservesBlankPositions(t *testing.T) {
	backend := upperBackend()
	c := NewClient(backend)

	got, err := c.TranslateBatch(context.Background(), []string{"", "ciao", "  ", "mondo", "\t"}, "it", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "CIAO", "", "MONDO", ""}, got)

	require.Len(t, backend.requests, 1)
	assert.Equal(t, Request{Texts: []string{"ciao", "mondo"}, SourceLang: "it", TargetLang: "en"}, backend.requests[0])
}

func TestTranslateBatchAllBlankSkipsBackend(t *testing.T) {
	for _, texts := range [][]string{{}, {""}, {"", " ", "\n"}} {
		backend := upperBackend()
		got, err := NewClient(backend).TranslateBatch(context.Background(), texts, "it", "de")
		require.NoError(t, err)
		assert.Len(t, got, len(texts))
		for _, s := range got {
			assert.Empty(t, s)
		}
		assert.Empty(t, backend.requests, "backend must not be called for %q", texts)
	}
}

func TestTranslateBatchLengthProperty(t *testing.T) {
	inputs := [][]string{
		{"a"},
		{"a", "", "b"},
		{"", "", "c"},
		{"x", "y", "z", " "},
	}
	c := NewClient(upperBackend())
	for _, in := range inputs {
		out, err := c.TranslateBatch(context.Background(), in, "it", "fr")
		require.NoError(t, err)
		require.Len(t, out, len(in))
		for i := range in {
			if in[i] == "" || in[i] == " " {
				assert.Empty(t, out[i])
			} else {
				assert.NotEmpty(t, out[i])
			}
		}
	}
}

func TestTranslateBatchEngineReportedError(t *testing.T) {
	backend := &recordingBackend{fn: func(Request) (Response, error) {
		return Response{Error: "model opus-mt-it-xx not available"}, nil
	}}
	_, err := NewClient(backend).TranslateBatch(context.Background(), []string{"ciao"}, "it", "xx")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEngine))
	assert.Contains(t, err.Error(), "opus-mt-it-xx")
}

func TestTranslateBatchRejectsIncongruentOutput(t *testing.T) {
	backend := &recordingBackend{fn: func(Request) (Response, error) {
		return Response{TranslatedTexts: []string{"only one"}}, nil
	}}
	_, err := NewClient(backend).TranslateBatch(context.Background(), []string{"a", "b"}, "it", "en")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestTranslateBatchPassesBackendError(t *testing.T) {
	want := &Error{Kind: KindLaunch, Source: "it", Target: "en", Err: errors.New("exec: not found")}
	backend := &recordingBackend{fn: func(Request) (Response, error) { return Response{}, want }}

	_, err := NewClient(backend).TranslateBatch(context.Background(), []string{"a"}, "it", "en")
	var got *Error
	require.ErrorAs(t, err, &got)
	assert.Equal(t, KindLaunch, got.Kind)
}

func TestFuncBackendWrapsPlainErrors(t *testing.T) {
	fb := FuncBackend(func(context.Context, Request) (Response, error) {
		return Response{}, errors.New("boom")
	})
	_, err := fb.Exchange(context.Background(), Request{SourceLang: "it", TargetLang: "en"})
	assert.True(t, IsKind(err, KindEngine))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FuncBackend(Uppercase).Exchange(ctx, Request{})
	assert.True(t, IsKind(err, KindCanceled), "got %v", err)

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err = FuncBackend(Uppercase).Exchange(ctx, Request{})
	assert.True(t, IsKind(err, KindTimeout), "got %v", err)
}

func TestCompactExpand(t *testing.T) {
	kept, pos := Compact([]string{" ", "a", "", "b"})
	assert.Equal(t, []string{"a", "b"}, kept)
	assert.Equal(t, []int{1, 3}, pos)
	assert.Equal(t, []string{"", "A", "", "B"}, Expand([]string{"A", "B"}, pos, 4))
}

func TestErrorMessages(t *testing.T) {
	e := &Error{Kind: KindExit, Source: "it", Target: "de", ExitCode: 2, Stderr: "Traceback\n"}
	assert.Equal(t, "it -> de: process exit (code 2); stderr: Traceback", e.Error())

	e = &Error{Kind: KindEngine, Source: "it", Target: "de", Message: "bad"}
	assert.Equal(t, "it -> de: engine reported: bad", e.Error())
}
