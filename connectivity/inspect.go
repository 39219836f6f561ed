package connectivity

import (
	"iter"
	"maps"
	"slices"
)

// ServiceInfo is a point-in-time view of one routed service. The router may
// have reloaded since it was produced.
type ServiceInfo struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
	Endpoint string `json:"endpoint,omitempty"`
	HasLocal bool   `json:"has_local"`
}

// ListServices iterates every service the router knows about, in name order:
// services with rows in the routes table plus local-only registrations.
func (r *Router) ListServices() iter.Seq[ServiceInfo] {
	return func(yield func(ServiceInfo) bool) {
		r.mu.RLock()
		defer r.mu.RUnlock()

		names := make(map[string]struct{}, len(r.routeSnap)+len(r.localHandlers))
		for name := range r.routeSnap {
			names[name] = struct{}{}
		}
		for name := range r.localHandlers {
			names[name] = struct{}{}
		}

		for _, name := range slices.Sorted(maps.Keys(names)) {
			if !yield(r.serviceInfo(name)) {
				return
			}
		}
	}
}

// Inspect reports a single service; ok is false when the name is neither
// routed nor registered locally.
func (r *Router) Inspect(service string) (info ServiceInfo, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, hasRoute := r.routeSnap[service]
	_, hasLocal := r.localHandlers[service]
	if !hasRoute && !hasLocal {
		return ServiceInfo{}, false
	}
	return r.serviceInfo(service), true
}

// serviceInfo assembles the view for one name. Caller holds r.mu.
func (r *Router) serviceInfo(name string) ServiceInfo {
	_, hasLocal := r.localHandlers[name]
	info := ServiceInfo{Name: name, Strategy: "local", HasLocal: hasLocal}
	if rt, ok := r.routeSnap[name]; ok {
		info.Strategy = rt.Strategy
		info.Endpoint = rt.Endpoint
	}
	return info
}
