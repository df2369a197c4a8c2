package execbackend

import (
	"encoding/binary"
	"fmt"
	"io"
)

// errorKind is the wire encoding of a response's outcome: 0=OK, 1=I/O,
// 2=timeout, 3=child-error.
type errorKind uint8

const (
	errNone errorKind = iota
	errIO
	errTimeoutKind
	errChildKind
)

// ipcRequest is one length-framed request sent to a resident worker.
type ipcRequest struct {
	requestID  uint64
	program    string
	args       []string
	workdir    string
	hasWorkdir bool
	timeoutMs  uint64
}

// ipcResponse is one length-framed response read back from a worker.
type ipcResponse struct {
	requestID uint64
	exitCode  int32
	stdout    []byte
	stderr    []byte
	kind      errorKind
	errorMsg  string
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeRequest encodes req in the process-pool wire format:
//
//	request_id u64, program_len u32, program_bytes, argc u32,
//	[arg_len u32, arg_bytes]*, workdir_present u8, [workdir_len u32,
//	workdir_bytes], timeout_ms u64 (0 = no timeout).
func writeRequest(w io.Writer, req ipcRequest) error {
	if err := writeUint64(w, req.requestID); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, []byte(req.program)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(req.args))); err != nil {
		return err
	}
	for _, a := range req.args {
		if err := writeLenPrefixed(w, []byte(a)); err != nil {
			return err
		}
	}
	if req.hasWorkdir {
		if _, err := w.Write([]byte{1}); err != nil {
			return err
		}
		if err := writeLenPrefixed(w, []byte(req.workdir)); err != nil {
			return err
		}
	} else {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return writeUint64(w, req.timeoutMs)
}

func readRequest(r io.Reader) (ipcRequest, error) {
	var req ipcRequest
	var err error

	if req.requestID, err = readUint64(r); err != nil {
		return req, err
	}
	programBytes, err := readLenPrefixed(r)
	if err != nil {
		return req, err
	}
	req.program = string(programBytes)

	argc, err := readUint32(r)
	if err != nil {
		return req, err
	}
	req.args = make([]string, argc)
	for i := range req.args {
		argBytes, err := readLenPrefixed(r)
		if err != nil {
			return req, err
		}
		req.args[i] = string(argBytes)
	}

	var present [1]byte
	if _, err := io.ReadFull(r, present[:]); err != nil {
		return req, err
	}
	if present[0] != 0 {
		req.hasWorkdir = true
		dirBytes, err := readLenPrefixed(r)
		if err != nil {
			return req, err
		}
		req.workdir = string(dirBytes)
	}

	if req.timeoutMs, err = readUint64(r); err != nil {
		return req, err
	}
	return req, nil
}

// writeResponse encodes resp in the process-pool wire format:
//
//	request_id u64, exit_code i32, stdout_len u32, stdout_bytes,
//	stderr_len u32, stderr_bytes, error_kind u8, [error_msg_len u32,
//	error_msg_bytes] present only when error_kind != 0.
func writeResponse(w io.Writer, resp ipcResponse) error {
	if err := writeUint64(w, resp.requestID); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(resp.exitCode)); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, resp.stdout); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, resp.stderr); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(resp.kind)}); err != nil {
		return err
	}
	if resp.kind != errNone {
		return writeLenPrefixed(w, []byte(resp.errorMsg))
	}
	return nil
}

func readResponse(r io.Reader) (ipcResponse, error) {
	var resp ipcResponse
	var err error

	if resp.requestID, err = readUint64(r); err != nil {
		return resp, err
	}
	exitCode, err := readUint32(r)
	if err != nil {
		return resp, err
	}
	resp.exitCode = int32(exitCode)

	if resp.stdout, err = readLenPrefixed(r); err != nil {
		return resp, err
	}
	if resp.stderr, err = readLenPrefixed(r); err != nil {
		return resp, err
	}

	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return resp, err
	}
	resp.kind = errorKind(kind[0])

	if resp.kind != errNone {
		msgBytes, err := readLenPrefixed(r)
		if err != nil {
			return resp, err
		}
		resp.errorMsg = string(msgBytes)
	}
	return resp, nil
}

// frameError annotates a read or write failure in ServeWorker with the step
// that hit it. ServeWorker returns it and stops serving; on the parent side
// the broken exchange surfaces as a child error and the worker is torn down
// and respawned.
func frameError(context string, err error) error {
	return fmt.Errorf("%s: %w", context, err)
}
