package execbackend

import (
	"context"
	"io"
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execerr"
	"github.com/cmdpool-go/cmdpool/internal/execproc"
)

// WorkerEnv is the environment variable a host binary checks at startup to
// decide whether it should run as a resident process-pool worker instead of
// its normal entry point, by re-executing itself with this variable set. A
// host's main() does:
//
//	if os.Getenv(execbackend.WorkerEnv) != "" {
//	    execbackend.ServeWorker(os.Stdin, os.Stdout)
//	    return
//	}
const WorkerEnv = "CMDPOOL_IPC_WORKER"

// ServeWorker runs the resident-worker side of the process-pool protocol: it
// reads one length-framed request at a time from r, executes it with a
// timed executor, and writes back one length-framed response to w, until r
// is exhausted (the parent closed its write end) or a fatal framing error
// occurs. It never returns an error for a well-formed EOF.
func ServeWorker(r io.Reader, w io.Writer) error {
	exec := execproc.New()
	for {
		req, err := readRequest(r)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return frameError("read request", err)
		}

		resp := runRequest(exec, req)
		if err := writeResponse(w, resp); err != nil {
			return frameError("write response", err)
		}
	}
}

func runRequest(exec *execproc.Executor, req ipcRequest) ipcResponse {
	d := command.New(req.program, req.args...)
	if req.hasWorkdir {
		d = d.WithWorkingDir(req.workdir)
	}
	if req.timeoutMs > 0 {
		d = d.WithTimeout(time.Duration(req.timeoutMs) * time.Millisecond)
	} else {
		d = d.WithoutTimeout()
	}

	result, err := exec.Execute(context.Background(), d)
	resp := ipcResponse{requestID: req.requestID}
	if err != nil {
		resp.errorMsg = err.Error()
		switch {
		case execerr.Is(err, execerr.KindTimeout):
			resp.kind = errTimeoutKind
		case execerr.Is(err, execerr.KindChild):
			resp.kind = errChildKind
		default:
			resp.kind = errIO
		}
		return resp
	}

	resp.exitCode = int32(result.ExitCode)
	resp.stdout = result.Stdout
	resp.stderr = result.Stderr
	resp.kind = errNone
	return resp
}
