package bulkops

import "sync"

// ProgressUpdate is what live watchers of an operation receive.
type ProgressUpdate struct {
	OperationID string      `json:"operation_id"`
	Status      BulkStatus  `json:"status"`
	Progress    int         `json:"progress"`
	Results     BulkResults `json:"results"`
}

// ProgressHub fans operation progress out to websocket subscribers. Slow
// subscribers drop updates rather than block the orchestrator.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan ProgressUpdate]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: make(map[string]map[chan ProgressUpdate]struct{}),
	}
}

func (h *ProgressHub) Subscribe(operationID string) chan ProgressUpdate {
	ch := make(chan ProgressUpdate, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[operationID] == nil {
		h.subs[operationID] = make(map[chan ProgressUpdate]struct{})
	}
	h.subs[operationID][ch] = struct{}{}
	return ch
}

func (h *ProgressHub) Unsubscribe(operationID string, ch chan ProgressUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[operationID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, operationID)
		}
	}
}

func (h *ProgressHub) Publish(update ProgressUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[update.OperationID] {
		select {
		case ch <- update:
		default:
		}
	}
}
