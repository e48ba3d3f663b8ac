package observability

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// ServiceHealth aggregates component health for the /health endpoint.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Status: HealthStatusUp, Version: version}
}

// AddComponent appends a component result. Down wins over degraded.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	switch h.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

// Unhealthy returns the components that are not up, in report order.
func (sh *ServiceHealth) Unhealthy() []Health {
	var out []Health
	for _, h := range sh.Components {
		if h.Status != HealthStatusUp {
			out = append(out, h)
		}
	}
	return out
}
