package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ShayCichocki/finval/internal/orchestrator"
	"github.com/ShayCichocki/finval/pkg/models"
)

const (
	streamWriteWait   = 10 * time.Second
	streamRequestWait = 30 * time.Second
	streamEventBuffer = 64
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type streamResult struct {
	report *models.ValidationReport
	url    string
	err    error
}

// handleStream runs a validation over a websocket. The client sends one
// ValidateRequest frame; the server answers with an "event" frame per
// orchestrator event and a final "report" or "error" frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var in ValidateRequest
	if err := conn.SetReadDeadline(time.Now().Add(streamRequestWait)); err != nil {
		return
	}
	if err := conn.ReadJSON(&in); err != nil {
		s.writeStream(conn, streamMessage{Type: streamTypeError, Code: "bad_request", Message: "invalid request frame: " + err.Error()})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	req, err := s.prepare(in)
	if err != nil {
		s.writeStreamError(conn, err)
		return
	}

	// Cancel the run if the client goes away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	emitter := orchestrator.NewEventEmitter(streamEventBuffer)
	done := make(chan streamResult, 1)
	go func() {
		rep, url, err := s.execute(ctx, req, orchestrator.WithEventEmitter(emitter))
		emitter.Close()
		done <- streamResult{report: rep, url: url, err: err}
	}()

	for ev := range emitter.Events() {
		if err := s.writeStream(conn, streamMessage{Type: streamTypeEvent, Event: ev}); err != nil {
			cancel()
		}
	}

	res := <-done
	if res.err != nil {
		s.writeStreamError(conn, res.err)
		return
	}
	if err := s.writeStream(conn, streamMessage{Type: streamTypeReport, Report: res.report, ArtifactURL: res.url}); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(streamWriteWait))
}

func (s *Server) writeStream(conn *websocket.Conn, msg streamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (s *Server) writeStreamError(conn *websocket.Conn, err error) {
	msg := streamMessage{Type: streamTypeError, Code: "internal_error", Message: err.Error()}
	var ae *apiError
	if errors.As(handleError(err), &ae) {
		msg.Code = ae.Body.Code
		msg.Message = ae.Body.Message
	}
	_ = s.writeStream(conn, msg)
}
