package service

import "docflow/internal/model"

// These two functions are the only writers of a process's LinkedDespachoIDs.
// The forward side (ProcessID on the despacho) is set once at registration
// and never changes.

// attachDespacho appends the despacho id to the process's link list.
// Appending an id that is already present is a no-op, so a repeated
// invocation cannot duplicate the link.
func attachDespacho(p *model.Record, despachoID string) {
	for _, id := range p.LinkedDespachoIDs {
		if id == despachoID {
			return
		}
	}
	p.LinkedDespachoIDs = append(p.LinkedDespachoIDs, despachoID)
}

// detachDespacho removes the despacho id from the process's link list.
// No-op if the id is absent.
func detachDespacho(p *model.Record, despachoID string) {
	for i, id := range p.LinkedDespachoIDs {
		if id == despachoID {
			p.LinkedDespachoIDs = append(p.LinkedDespachoIDs[:i], p.LinkedDespachoIDs[i+1:]...)
			return
		}
	}
}
