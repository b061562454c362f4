package refresh

import "time"

// State is the lifecycle position of a coordinator.
type State string

const (
	Uninitialized State = "uninitialized"
	Ready         State = "ready"
	Refreshing    State = "refreshing"
)

// Health is a point-in-time view of a coordinator for the operational layer.
type Health struct {
	Name                string    `json:"name"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Degraded            bool      `json:"degraded"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastAttempt         time.Time `json:"last_attempt,omitzero"`
	LastError           string    `json:"last_error,omitempty"`
	Updated             time.Time `json:"updated,omitzero"`
}

// State reports Uninitialized until the first success, then Ready or Refreshing.
func (c *Coordinator[T]) State() State {
	if c.current.Load() == nil {
		return Uninitialized
	}
	if c.inFlight.Load() {
		return Refreshing
	}
	return Ready
}

// Health summarizes the coordinator's recent cycles.
func (c *Coordinator[T]) Health() Health {
	h := Health{Name: c.name, State: c.State()}
	if v := c.current.Load(); v != nil {
		h.Updated = v.Built
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	h.ConsecutiveFailures = c.failures
	h.Degraded = c.failures >= DegradedThreshold
	h.LastSuccess = c.lastSuccess
	h.LastAttempt = c.lastAttempt
	if c.lastErr != nil {
		h.LastError = c.lastErr.Error()
	}
	return h
}
