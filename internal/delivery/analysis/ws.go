package analysis

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"bgscan/internal/httpresponse"
	"bgscan/internal/usecase/extraction"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	EventStage  = "stage"
	EventResult = "result"
	EventError  = "error"
)

// ScanEvent is one message sent back on /ws/scan.
type ScanEvent struct {
	Type      string           `json:"type"`
	Stage     extraction.Stage `json:"stage,omitempty"`
	ElapsedMs float64          `json:"elapsedMs,omitempty"`
	Result    *ScanResponse    `json:"result,omitempty"`
	Status    int              `json:"status,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// HandleScanSocket scans every binary message received on the socket as an
// image. Each finished stage is reported, then the result or the error.
func (a *AnalysisHandler) HandleScanSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Error("upgrade error:", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(a.cfg.MaxUploadBytes)

	ctx := r.Context()
	for n := 1; ; n++ {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.log.Warnw("websocket read error", "error", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			if err = conn.WriteJSON(ScanEvent{Type: EventError, Status: http.StatusBadRequest, Error: "send the image as a binary message"}); err != nil {
				return
			}
			continue
		}

		hook := func(stage extraction.Stage, elapsed time.Duration) {
			ev := ScanEvent{Type: EventStage, Stage: stage, ElapsedMs: float64(elapsed.Microseconds()) / 1000}
			if werr := conn.WriteJSON(ev); werr != nil {
				a.log.Warnw("failed to send stage event", "stage", stage, "error", werr)
			}
		}

		src := extraction.BytesSource{Label: "websocket-" + strconv.Itoa(n), Data: data}
		resp, err := a.scan(ctx, src, true, extraction.WithStageHook(hook))
		if err != nil {
			a.log.Warnw("websocket scan failed", "error", err)
			err = conn.WriteJSON(ScanEvent{Type: EventError, Status: httpresponse.StatusFor(err), Error: err.Error()})
		} else {
			err = conn.WriteJSON(ScanEvent{Type: EventResult, Result: &resp})
		}
		if err != nil {
			a.log.Warnw("websocket write error", "error", err)
			return
		}
	}
}
