package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FuncBackend adapts an in-process function to the Backend interface.
type FuncBackend func(ctx context.Context, req Request) (Response, error)

// Exchange implements Backend. Errors that are not already *Error are
// reported as engine failures.
func (f FuncBackend) Exchange(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, &Error{Kind: contextKind(err), Source: req.SourceLang, Target: req.TargetLang, Err: err}
	}
	resp, err := f(ctx, req)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return Response{}, err
		}
		return Response{}, &Error{Kind: KindEngine, Source: req.SourceLang, Target: req.TargetLang, Err: err}
	}
	return resp, nil
}

// Uppercase is a stub engine that "translates" by upper-casing. It backs the
// engine-stub command and runs where no model is available.
func Uppercase(_ context.Context, req Request) (Response, error) {
	out := make([]string, len(req.Texts))
	for i, t := range req.Texts {
		out[i] = strings.ToUpper(t)
	}
	return Response{TranslatedTexts: out}, nil
}

// ServeStdio runs one engine exchange over the given streams using the same
// protocol ProcessBackend speaks: read a Request from in until EOF, write a
// Response to out. Invalid requests are reported on errOut with exit code 1,
// mirroring the reference translator script. It returns the exit code.
func ServeStdio(ctx context.Context, in io.Reader, out, errOut io.Writer, fn FuncBackend) int {
	data, err := io.ReadAll(in)
	if err != nil {
		writeJSON(errOut, Response{Error: fmt.Sprintf("reading input: %v", err)})
		return 1
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		writeJSON(errOut, Response{Error: fmt.Sprintf("Invalid JSON input: %v", err)})
		return 1
	}
	if len(req.Texts) == 0 || req.SourceLang == "" || req.TargetLang == "" {
		writeJSON(errOut, Response{Error: "Missing 'texts' (must be a list), 'source_lang', or 'target_lang'"})
		return 1
	}

	resp, err := fn(ctx, req)
	if err != nil {
		resp = Response{Error: err.Error()}
	}
	writeJSON(out, resp)
	return 0
}

func writeJSON(w io.Writer, v any) {
	data, _ := json.Marshal(v)
	_, _ = w.Write(append(data, '\n'))
}
