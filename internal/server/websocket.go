package server

import (
	"net/http"
	"sync"

	"github.com/atikulmunna/logrank/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const clientBuffer = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feed fans new results out to websocket clients. A client that falls
// behind misses intermediate results; the next one supersedes them anyway.
type feed struct {
	mu      sync.Mutex
	clients map[chan *pipeline.Result]struct{}
}

func newFeed() *feed {
	return &feed{clients: make(map[chan *pipeline.Result]struct{})}
}

func (f *feed) subscribe() chan *pipeline.Result {
	ch := make(chan *pipeline.Result, clientBuffer)
	f.mu.Lock()
	f.clients[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *feed) unsubscribe(ch chan *pipeline.Result) {
	f.mu.Lock()
	delete(f.clients, ch)
	f.mu.Unlock()
}

func (f *feed) publish(res *pipeline.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.clients {
		select {
		case ch <- res:
		default:
		}
	}
}

func (f *feed) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// handleWebSocket upgrades to WebSocket and pushes every new result to the client,
// starting with the latest one if any.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	results := s.feed.subscribe()
	defer s.feed.unsubscribe(results)

	if res := s.Latest(); res != nil {
		if err := conn.WriteJSON(res); err != nil {
			return
		}
	}

	// Read pump — detect client disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Write pump.
	for {
		select {
		case <-gone:
			return
		case res := <-results:
			if err := conn.WriteJSON(res); err != nil {
				s.logger.Debugw("websocket write failed", "error", err)
				return
			}
		}
	}
}
