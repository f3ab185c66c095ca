package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bgscan/internal/domain/analysis"
	"bgscan/internal/errors"
)

// ProcessRequest is one line written to the evaluator process stdin.
type ProcessRequest struct {
	ID       string `json:"id"`                 // echoed back in the response
	Cmd      string `json:"cmd"`                // "init" or "evaluate"
	Model    string `json:"model,omitempty"`    // init only
	Position string `json:"position,omitempty"` // engine input, evaluate only
}

// ProcessResponse is one line read from the evaluator process stdout.
type ProcessResponse struct {
	ID       string                     `json:"id"`
	Ok       bool                       `json:"ok"`
	Analysis *analysis.PositionAnalysis `json:"analysis,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// ProcessEvaluator runs a native evaluator as a child process and talks to
// it in JSON lines. Requests may be in flight concurrently; responses are
// matched by ID.
type ProcessEvaluator struct {
	name string
	args []string
	env  []string
	log  *zap.SugaredLogger

	start    sync.Once
	startErr error
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	writer   *bufio.Writer
	mu       sync.Mutex
	response sync.Map // map[requestID]chan ProcessResponse
	done     chan struct{}
}

func NewProcessEvaluator(log *zap.SugaredLogger, name string, args ...string) *ProcessEvaluator {
	return &ProcessEvaluator{
		name: name,
		args: args,
		log:  log,
		done: make(chan struct{}),
	}
}

// WithEnv adds environment variables for the child process.
func (p *ProcessEvaluator) WithEnv(env ...string) *ProcessEvaluator {
	p.env = append(p.env, env...)
	return p
}

func (p *ProcessEvaluator) launch() error {
	p.start.Do(func() {
		cmd := exec.Command(p.name, p.args...)
		if len(p.env) > 0 {
			cmd.Env = append(os.Environ(), p.env...)
		}

		stdinPipe, err := cmd.StdinPipe()
		if err != nil {
			p.startErr = err
			return
		}
		stdoutPipe, err := cmd.StdoutPipe()
		if err != nil {
			p.startErr = err
			return
		}
		if err = cmd.Start(); err != nil {
			p.startErr = fmt.Errorf("%w: start %s: %v", errors.ErrEvaluatorUnavailable, p.name, err)
			return
		}

		p.cmd = cmd
		p.stdin = stdinPipe
		p.writer = bufio.NewWriter(stdinPipe)

		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		go p.listenForResponses(scanner)
	})
	return p.startErr
}

func (p *ProcessEvaluator) listenForResponses(scanner *bufio.Scanner) {
	defer close(p.done)
	for scanner.Scan() {
		line := scanner.Bytes()

		var resp ProcessResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			p.log.Errorw("failed to unmarshal evaluator response", "error", err, "line", string(line))
			continue
		}

		if chIface, ok := p.response.LoadAndDelete(resp.ID); ok {
			chIface.(chan ProcessResponse) <- resp
		} else {
			p.log.Warnw("no channel found for response ID", "id", resp.ID)
		}
	}
	if err := scanner.Err(); err != nil {
		p.log.Errorw("evaluator stdout closed with error", "error", err)
	}
	p.log.Warn("процесс оценщика завершился")
}

func (p *ProcessEvaluator) call(ctx context.Context, req ProcessRequest) (ProcessResponse, error) {
	if err := p.launch(); err != nil {
		return ProcessResponse{}, err
	}

	req.ID = uuid.New().String()
	responseChan := make(chan ProcessResponse, 1)
	p.response.Store(req.ID, responseChan)

	requestJSON, err := json.Marshal(req)
	if err != nil {
		p.response.Delete(req.ID)
		return ProcessResponse{}, err
	}

	p.mu.Lock()
	_, err = p.writer.Write(append(requestJSON, '\n'))
	if err == nil {
		err = p.writer.Flush()
	}
	p.mu.Unlock()
	if err != nil {
		p.response.Delete(req.ID)
		return ProcessResponse{}, fmt.Errorf("%w: write request: %v", errors.ErrEvaluatorUnavailable, err)
	}

	select {
	case resp := <-responseChan:
		return resp, nil
	case <-ctx.Done():
		p.response.Delete(req.ID)
		return ProcessResponse{}, ctx.Err()
	case <-p.done:
		select {
		case resp := <-responseChan:
			return resp, nil
		default:
		}
		p.response.Delete(req.ID)
		return ProcessResponse{}, fmt.Errorf("%w: evaluator process exited", errors.ErrEvaluatorUnavailable)
	}
}

func (p *ProcessEvaluator) Init(ctx context.Context, modelRef string) bool {
	resp, err := p.call(ctx, ProcessRequest{Cmd: "init", Model: modelRef})
	if err != nil {
		p.log.Warnw("evaluator process init failed", "command", p.name, "error", err)
		return false
	}
	if !resp.Ok {
		p.log.Warnw("evaluator process rejected the model", "model", modelRef, "error", resp.Error)
	}
	return resp.Ok
}

func (p *ProcessEvaluator) Evaluate(ctx context.Context, encoded string) (analysis.PositionAnalysis, error) {
	resp, err := p.call(ctx, ProcessRequest{Cmd: "evaluate", Position: encoded})
	if err != nil {
		return analysis.PositionAnalysis{}, err
	}
	if !resp.Ok {
		return analysis.PositionAnalysis{}, fmt.Errorf("%w: %s", errors.ErrEvaluatorUnavailable, resp.Error)
	}
	if resp.Analysis == nil {
		return analysis.PositionAnalysis{}, fmt.Errorf("%w: empty analysis", errors.ErrEvaluatorUnavailable)
	}
	return *resp.Analysis, nil
}

// Close stops the child process if it was started.
func (p *ProcessEvaluator) Close() error {
	if p.cmd == nil {
		return nil
	}
	_ = p.stdin.Close()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	return p.cmd.Wait()
}
