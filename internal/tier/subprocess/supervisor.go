package subprocess

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/fastestgo/fastest/internal/errors"
	"github.com/fastestgo/fastest/internal/shutil"
)

// Supervisor owns one long-lived worker subprocess, matching spec.md
// §4.H.2.3's batching model: tests are grouped into batches and shipped
// to the same worker to amortize interpreter startup.
//
// Grounded on the teacher's process-group handling in
// chromiumos/tast/internal/runner/runner.go's killStaleRunners: workers
// are started in their own session (SysProcAttr.Setsid) so the whole
// process group can be signaled together, and unix.Kill(-pid, sig)
// delivers to the group rather than just the leader.
type Supervisor struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu      sync.Mutex
	nextID  int64
	crashed int32

	done chan struct{} // closed when the worker process's Wait() returns
}

// Start spawns workerPath as a child process and blocks until it prints
// ReadySentinel (or fails to).
func Start(ctx context.Context, workerPath string, args ...string) (*Supervisor, error) {
	cmd := exec.CommandContext(ctx, workerPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		done:   make(chan struct{}),
	}

	go func() {
		cmd.Wait()
		close(s.done)
	}()

	cmdline := shutil.EscapeSlice(append([]string{workerPath}, args...))

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("worker command %s never became ready: %w", cmdline, err)
	}
	if trimNewline(line) != ReadySentinel {
		return nil, fmt.Errorf("worker command %s printed unexpected startup line %q", cmdline, line)
	}
	return s, nil
}

// RunBatch sends one RequestRunTests for specs and waits for the
// matching reply. If the worker process dies before replying, RunBatch
// returns a *errors.WorkerCrash; its caller, cmd/fastest's
// runViaSubprocessTier, then reports Error for every spec in the batch.
// That caller sends its whole run as one batch and starts no replacement
// Supervisor.
func (s *Supervisor) RunBatch(ctx context.Context, specs []TestSpec) ([]TestOutcome, error) {
	data, err := json.Marshal(RunTestsRequest{Tests: specs})
	if err != nil {
		return nil, err
	}
	reply, err := s.roundTrip(ctx, RequestRunTests, data)
	if err != nil {
		return nil, err
	}
	if !reply.Success {
		return nil, errors.Errorf("worker reported failure: %s", reply.Error)
	}
	var payload RunTestsReply
	if err := json.Unmarshal(reply.Data, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// Shutdown asks the worker to exit cleanly and waits for it to do so.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if atomic.LoadInt32(&s.crashed) != 0 {
		return nil
	}
	_, err := s.roundTrip(ctx, RequestShutdown, nil)
	<-s.done
	return err
}

// Kill delivers sig to the worker's whole process group, for a worker
// that has stopped responding (e.g. a test ignoring its timeout).
func (s *Supervisor) Kill(sig unix.Signal) error {
	if s.cmd.Process == nil {
		return nil
	}
	return unix.Kill(-s.cmd.Process.Pid, sig)
}

func (s *Supervisor) roundTrip(ctx context.Context, typ RequestType, data json.RawMessage) (Reply, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	req := Request{ID: id, Type: typ, Data: data}
	encoded, err := json.Marshal(req)
	if err != nil {
		return Reply{}, err
	}

	type result struct {
		reply Reply
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		if _, err := s.stdin.Write(append(encoded, '\n')); err != nil {
			ch <- result{err: err}
			return
		}
		line, err := s.stdout.ReadString('\n')
		if err != nil {
			ch <- result{err: err}
			return
		}
		var reply Reply
		if err := json.Unmarshal([]byte(trimNewline(line)), &reply); err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{reply: reply}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			atomic.StoreInt32(&s.crashed, 1)
			return Reply{}, errors.NewWorkerCrash(s.cmd.Path, r.err)
		}
		return r.reply, nil
	case <-s.done:
		atomic.StoreInt32(&s.crashed, 1)
		return Reply{}, errors.NewWorkerCrash(s.cmd.Path, errors.New("worker process exited unexpectedly"))
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
