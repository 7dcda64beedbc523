// Package registry keeps the in-memory identity to organization mapping and
// the reports submitted under each identity and organization.
//
// Nothing is persisted; a restart starts from an empty registry.
package registry

import (
	"encoding/json"
	"sync"
	"time"
)

// Unmapped is the organization bucket used for identities that were never
// registered. Registering an identity to Unmapped leaves it unregistered.
const Unmapped = "-"

// Report is one accepted submission.
type Report struct {
	Identity   string          `json:"aid"`
	Digest     string          `json:"dig"`
	Payload    json.RawMessage `json:"report,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Registry maps identities to organizations and indexes reports by both.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	orgs       map[string]string
	byIdentity map[string][]Report
	byOrg      map[string][]Report
	orgDigests map[string]map[string]struct{}
	now        func() time.Time
}

// New returns an empty Registry.
func New() *Registry {
	r := &Registry{now: time.Now}
	r.reset()

	return r
}

func (r *Registry) reset() {
	r.orgs = make(map[string]string)
	r.byIdentity = make(map[string][]Report)
	r.byOrg = make(map[string][]Report)
	r.orgDigests = make(map[string]map[string]struct{})
}

// Register associates identity with org. Later calls overwrite earlier
// ones.
func (r *Registry) Register(identity, org string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orgs[identity] = org
}

// Organization returns the organization registered for identity.
func (r *Registry) Organization(identity string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.mappedOrg(identity)
}

// Record appends a report to the identity's list and to its organization's
// list, and authorizes digest for every identity of that organization.
// Reports from unregistered identities land in the Unmapped bucket.
func (r *Registry) Record(identity, digest string, payload json.RawMessage) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{
		Identity:   identity,
		Digest:     digest,
		Payload:    append(json.RawMessage(nil), payload...),
		ReceivedAt: r.now().UTC(),
	}

	org := r.orgOf(identity)

	r.byIdentity[identity] = append(r.byIdentity[identity], rep)
	r.byOrg[org] = append(r.byOrg[org], rep)

	digests, ok := r.orgDigests[org]
	if !ok {
		digests = make(map[string]struct{})
		r.orgDigests[org] = digests
	}
	digests[digest] = struct{}{}

	return rep
}

// IsAuthorized reports whether digest was submitted by any identity of the
// same organization as identity. Identities without an organization are
// never authorized.
func (r *Registry) IsAuthorized(identity, digest string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	org, ok := r.mappedOrg(identity)
	if !ok {
		return false
	}

	_, ok = r.orgDigests[org][digest]

	return ok
}

// ForIdentity returns a copy of the reports submitted by identity.
func (r *Registry) ForIdentity(identity string) []Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneReports(r.byIdentity[identity])
}

// ForOrganization returns a copy of the reports submitted by every identity
// of identity's organization. It is empty when identity has no
// organization.
func (r *Registry) ForOrganization(identity string) []Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	org, ok := r.mappedOrg(identity)
	if !ok {
		return []Report{}
	}

	return cloneReports(r.byOrg[org])
}

// Clear empties the identity's own report list. Organization lists and
// authorized digests are left untouched.
func (r *Registry) Clear(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byIdentity, identity)
}

// Reset drops every mapping and report.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reset()
}

func (r *Registry) orgOf(identity string) string {
	if org, ok := r.mappedOrg(identity); ok {
		return org
	}

	return Unmapped
}

// mappedOrg returns identity's organization, treating an empty name and
// Unmapped as no organization.
func (r *Registry) mappedOrg(identity string) (string, bool) {
	org, ok := r.orgs[identity]
	if !ok || org == "" || org == Unmapped {
		return "", false
	}

	return org, true
}

func cloneReports(src []Report) []Report {
	out := make([]Report, len(src))
	copy(out, src)

	return out
}
