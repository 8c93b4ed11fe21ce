package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// Report is the payload of the health endpoint.
type Report struct {
	OK         bool              `json:"ok"`
	Components map[string]string `json:"components,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: make(map[string]Check), timeout: 2 * time.Second}
}

// Register adds a named dependency check. Registering a name twice replaces it.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Status runs every check and reports "ok" or the error text per component.
func (s *Service) Status(ctx context.Context) Report {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	report := Report{OK: true}
	if len(names) == 0 {
		return report
	}
	report.Components = make(map[string]string, len(names))
	for _, name := range names {
		s.mu.RLock()
		check := s.checks[name]
		s.mu.RUnlock()

		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := check(cctx)
		cancel()
		if err != nil {
			report.OK = false
			report.Components[name] = err.Error()
			continue
		}
		report.Components[name] = "ok"
	}
	return report
}
