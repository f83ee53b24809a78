package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"library-fees/internal/auth"
)

// RequestEntry builds an entry for an action taken through the HTTP API.
// Actor and role come from the request identity, the branch is the one that
// owns the resource. Metadata is stored as JSON.
func RequestEntry(r *http.Request, branchID, action, resourceType, resourceID string, metadata map[string]any) Entry {
	entry := Entry{
		BranchID:     branchID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if len(metadata) > 0 {
		if payload, err := json.Marshal(metadata); err == nil {
			entry.Metadata = payload
		}
	}
	if r == nil {
		return entry
	}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		entry.Actor = id.Subject
		entry.Role = string(id.Role)
		if entry.BranchID == "" {
			entry.BranchID = id.BranchID
		}
	}
	entry.IP = clientIP(r)
	entry.UserAgent = r.UserAgent()
	return entry
}

// clientIP prefers the first proxy-reported address over RemoteAddr.
func clientIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		first, _, _ := strings.Cut(r.Header.Get(header), ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
