package subprocess

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fastestgo/fastest/internal/tier/embedded"
)

// RunWorker implements the worker side of the protocol: it prints
// ReadySentinel, then services line-delimited JSON requests from in
// until a shutdown request arrives or in reaches EOF. Each reply is
// written to out as one JSON line. Used by cmd/fastest-worker.
func RunWorker(in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	fmt.Fprintln(w, ReadySentinel)
	if err := w.Flush(); err != nil {
		return err
	}

	tier := embedded.New()
	defer tier.Close()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			writeReply(w, Reply{Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}

		if req.Type == RequestShutdown {
			writeReply(w, Reply{ID: req.ID, Success: true})
			return nil
		}

		reply := handle(tier, req)
		writeReply(w, reply)
	}
	return scanner.Err()
}

func handle(tier *embedded.Tier, req Request) Reply {
	switch req.Type {
	case RequestRunTests:
		return handleRunTests(tier, req)
	case RequestSetupFixtures, RequestCleanupFixtures:
		// Fixture lifecycle for the subprocess tier is driven per-batch
		// by RunTestsRequest.Tests[i].Fixtures (already-resolved values
		// computed by dispatch.ResolveBatch in the parent process,
		// cmd/fastest's runViaSubprocessTier); there is no separate
		// worker-side fixture graph to set up or tear down, so these
		// request kinds are acknowledged as no-ops.
		return Reply{ID: req.ID, Success: true}
	default:
		return Reply{ID: req.ID, Success: false, Error: fmt.Sprintf("unknown request type %q", req.Type)}
	}
}

func handleRunTests(tier *embedded.Tier, req Request) Reply {
	var payload RunTestsRequest
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		return Reply{ID: req.ID, Success: false, Error: err.Error()}
	}

	results := make([]TestOutcome, 0, len(payload.Tests))
	for _, spec := range payload.Tests {
		out := tier.Run(spec.ID, spec.Body, spec.Fixtures, time.Duration(spec.TimeoutNS))
		o := TestOutcome{ID: spec.ID, Passed: out.Passed}
		if out.Err != nil {
			o.Message = out.Err.Message
		}
		results = append(results, o)
	}

	data, err := json.Marshal(RunTestsReply{Results: results})
	if err != nil {
		return Reply{ID: req.ID, Success: false, Error: err.Error()}
	}
	return Reply{ID: req.ID, Success: true, Data: data}
}

func writeReply(w *bufio.Writer, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(Reply{ID: r.ID, Success: false, Error: "failed to marshal reply"})
	}
	w.Write(data)
	w.WriteByte('\n')
	w.Flush()
}
