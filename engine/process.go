package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/minios-linux/catalogtx/logging"
)

// ProcessBackend runs the engine as a fresh child process for every
// exchange. The request is written to the child's stdin, which is then
// closed; the response is read from stdout after the child exits. Stderr is
// captured for diagnostics only.
type ProcessBackend struct {
	// Command is the executable to run (e.g. "python3").
	Command string
	// Args are passed to Command (e.g. the translator script path).
	Args []string
	// Dir is the working directory of the child; empty means the current one.
	Dir string
	// Env is appended to the parent environment.
	Env []string
	// Timeout bounds one exchange; zero means no limit beyond ctx.
	Timeout time.Duration
	// Logger receives diagnostics; nil means no logging.
	Logger logging.Logger
}

// processWaitDelay bounds how long Wait keeps draining pipes after the child
// is killed, so a grandchild holding stdout cannot hang the run.
const processWaitDelay = 2 * time.Second

// Exchange implements Backend.
func (b *ProcessBackend) Exchange(ctx context.Context, req Request) (Response, error) {
	log := b.Logger
	if log == nil {
		log = logging.NoOp()
	}
	fail := func(kind Kind) *Error {
		return &Error{Kind: kind, Source: req.SourceLang, Target: req.TargetLang}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		e := fail(KindLaunch)
		e.Err = err
		return Response{}, e
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, b.Command, b.Args...)
	cmd.Dir = b.Dir
	if len(b.Env) > 0 {
		cmd.Env = append(os.Environ(), b.Env...)
	}
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = processWaitDelay

	log.Debug("spawning engine", "command", b.Command, "source", req.SourceLang, "target", req.TargetLang, "texts", len(req.Texts))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		e := fail(KindLaunch)
		e.Err = err
		return Response{}, e
	}
	waitErr := cmd.Wait()

	if stderr.Len() > 0 {
		log.Debug("engine stderr", "target", req.TargetLang, "stderr", truncate(stderr.String(), 2000))
	}
	log.Debug("engine exited", "target", req.TargetLang, "elapsed", time.Since(start).String(), "code", cmd.ProcessState.ExitCode())

	if ctxErr := ctx.Err(); ctxErr != nil {
		e := fail(contextKind(ctxErr))
		e.Err = ctxErr
		e.Stderr = stderr.String()
		return Response{}, e
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if msg, ok := decodeErrorPayload(stdout.Bytes()); ok {
				return Response{Error: msg}, nil
			}
			e := fail(KindExit)
			e.ExitCode = exitErr.ExitCode()
			e.Stderr = stderr.String()
			if e.Stderr == "" {
				e.Message = "no diagnostic output"
			}
			return Response{}, e
		}
		e := fail(KindExit)
		e.Err = waitErr
		e.Stderr = stderr.String()
		return Response{}, e
	}

	return decodeResponse(stdout.Bytes(), stderr.String(), fail)
}

// decodeResponse parses the stdout of a successful exit. Anything other than
// a single object carrying translated_texts or error is malformed.
func decodeResponse(out []byte, stderr string, fail func(Kind) *Error) (Response, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		e := fail(KindMalformed)
		e.Message = "engine produced no output despite exiting successfully"
		e.Stderr = stderr
		return Response{}, e
	}

	var raw struct {
		TranslatedTexts *[]*string `json:"translated_texts"`
		Error           *string   `json:"error"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		e := fail(KindMalformed)
		e.Message = "decoding engine output: " + truncate(strings.TrimSpace(string(out)), 200)
		e.Err = err
		e.Stderr = stderr
		return Response{}, e
	}
	if raw.Error != nil && *raw.Error != "" {
		return Response{Error: *raw.Error}, nil
	}
	if raw.TranslatedTexts == nil {
		e := fail(KindMalformed)
		e.Message = "engine output has no translated_texts"
		e.Stderr = stderr
		return Response{}, e
	}
	texts := make([]string, len(*raw.TranslatedTexts))
	for i, t := range *raw.TranslatedTexts {
		if t == nil {
			e := fail(KindMalformed)
			e.Message = fmt.Sprintf("translated_texts[%d] is not a string", i)
			e.Stderr = stderr
			return Response{}, e
		}
		texts[i] = *t
	}
	return Response{TranslatedTexts: texts}, nil
}

func decodeErrorPayload(out []byte) (string, bool) {
	var raw struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(out), &raw); err != nil || raw.Error == "" {
		return "", false
	}
	return raw.Error, true
}
