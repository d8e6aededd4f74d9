package stage

// Health summarizes the readiness of a workflow stage. A stage is unhealthy
// when a dependency it needs (an external binary, the Telegram API, the
// staging volume) is unavailable; Detail carries the operator-facing reason.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
