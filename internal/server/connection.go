package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/codefionn/pyrite/internal/consts"
	"github.com/codefionn/pyrite/internal/logger"
	"github.com/codefionn/pyrite/internal/protocol"
)

// errConnDone ends the connection loop without a fatal outcome
var errConnDone = errors.New("connection done")

// connection runs the per-client line protocol: one JSON request per line
// in, one JSON response per line out, in strict order.
type connection struct {
	id       string
	conn     net.Conn
	pipeline *Pipeline
}

func newConnection(id string, conn net.Conn, pipeline *Pipeline) *connection {
	return &connection{
		id:       id,
		conn:     conn,
		pipeline: pipeline,
	}
}

// serve reads requests until the client disconnects. The returned error is
// non-nil only for a fatal handler failure; protocol-level problems are
// answered on the connection and the loop continues.
func (c *connection) serve(ctx context.Context) error {
	reader := bufio.NewReaderSize(c.conn, consts.BufferSize64KB)

	for {
		line, readErr := reader.ReadString('\n')

		// A closing client may not terminate its last request with a
		// newline; the remainder is still a complete request.
		if line = strings.TrimSpace(line); line != "" {
			if err := c.handleLine(ctx, line); err != nil {
				if errors.Is(err, errConnDone) {
					return nil
				}
				return err
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				logger.Info("Connection %s closed by client", c.id)
			} else if errors.Is(readErr, net.ErrClosed) {
				logger.Info("Connection %s closed", c.id)
			} else {
				logger.Error("Error reading from connection %s: %v", c.id, readErr)
			}
			return nil
		}
	}
}

// handleLine runs one request line through decode, dispatch, and response
// write. errConnDone means stop serving this connection quietly; any other
// error is a fatal handler failure.
func (c *connection) handleLine(ctx context.Context, line string) error {
	req, decodeErr := protocol.DecodeRequest([]byte(line))
	if decodeErr != nil {
		// Malformed input is recovered locally: report and keep reading
		logger.Warn("Connection %s sent invalid request: %v", c.id, decodeErr)
		if writeErr := c.write(protocol.NewErrorResponse(decodeErr.Error())); writeErr != nil {
			logger.Error("Failed to write error response on %s: %v", c.id, writeErr)
			return errConnDone
		}
		return nil
	}

	resp, err := c.pipeline.Dispatch(ctx, req)
	if err != nil {
		if errors.Is(err, ErrServingStopped) || errors.Is(err, context.Canceled) {
			return errConnDone
		}
		// Fatal handler failure: no response is written for this request
		return err
	}

	if writeErr := c.write(resp); writeErr != nil {
		// The state swap already happened; a dead client only loses
		// its response
		logger.Error("Failed to write response on %s: %v", c.id, writeErr)
		return errConnDone
	}
	return nil
}

// write serializes one response as a single line
func (c *connection) write(resp *protocol.Response) error {
	data, err := resp.Encode()
	if err != nil {
		return err
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(consts.Timeout10Seconds)); err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.conn, "%s\n", data)
	return err
}
