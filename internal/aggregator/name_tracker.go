package aggregator

import (
	"fmt"
	"strings"
	"sync"
)

// NameTracker namespaces tool, prompt, and resource names so a client
// talking to the router can tell which downstream server a capability
// came from, and the router can reverse the mapping on dispatch.
//
// Tools and prompts are exposed as "<slug>.<original>"; resources are
// exposed as "mcpr://<slug>/<original>", with the original URI appended as
// is, scheme included (so "file:///etc/hosts" becomes
// "mcpr://<slug>/file:///etc/hosts").
type NameTracker struct {
	nameMapping map[string]mapping
	// server id (registry key) -> slug used in exposed names
	serverSlugs map[string]string
	mu          sync.RWMutex
}

type mapping struct {
	serverName   string // registry key (server id), not the slug
	originalName string
	itemType     string // "tool", "prompt", or "resource"
}

const resourceScheme = "mcpr://"

// NewNameTracker creates a new name tracker. toolPrefix is accepted for
// backward-compatible construction but no longer wraps every name — per-server
// slugs are the only namespace now.
func NewNameTracker(toolPrefix string) *NameTracker {
	return &NameTracker{
		nameMapping: make(map[string]mapping),
		serverSlugs: make(map[string]string),
	}
}

// SetServerPrefix records the slug used to namespace a server's capabilities.
// If slug is empty, the registry key (server id) is used verbatim.
func (nt *NameTracker) SetServerPrefix(serverName, slug string) {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	if slug == "" {
		slug = serverName
	}
	nt.serverSlugs[serverName] = slug
}

func (nt *NameTracker) slugFor(serverName string) string {
	if slug, ok := nt.serverSlugs[serverName]; ok && slug != "" {
		return slug
	}
	return serverName
}

// GetExposedToolName returns "<slug>.<toolName>" and records the mapping
// back to serverName/toolName.
func (nt *NameTracker) GetExposedToolName(serverName, toolName string) string {
	return nt.expose(serverName, toolName, "tool")
}

// GetExposedPromptName returns "<slug>.<promptName>" and records the mapping
// back to serverName/promptName.
func (nt *NameTracker) GetExposedPromptName(serverName, promptName string) string {
	return nt.expose(serverName, promptName, "prompt")
}

func (nt *NameTracker) expose(serverName, name, itemType string) string {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	slug := nt.slugFor(serverName)
	exposed := slug + "." + name
	nt.nameMapping[exposed] = mapping{serverName: serverName, originalName: name, itemType: itemType}
	return exposed
}

// GetExposedResourceURI returns "mcpr://<slug>/<originalURI>" and records
// the mapping back to serverName/resourceURI.
func (nt *NameTracker) GetExposedResourceURI(serverName, resourceURI string) string {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	slug := nt.slugFor(serverName)
	path := strings.TrimPrefix(resourceURI, resourceScheme)
	exposed := resourceScheme + slug + "/" + path

	nt.nameMapping[exposed] = mapping{serverName: serverName, originalName: resourceURI, itemType: "resource"}
	return exposed
}

// ResolveName resolves an exposed tool/prompt name or resource URI back to
// the server that owns it and its original name/URI.
func (nt *NameTracker) ResolveName(exposedName string) (serverName, originalName string, itemType string, err error) {
	nt.mu.RLock()
	m, exists := nt.nameMapping[exposedName]
	nt.mu.RUnlock()
	if exists {
		return m.serverName, m.originalName, m.itemType, nil
	}

	// Fall back to structural parsing for names the tracker hasn't seen yet
	// (e.g. a client guessing a tool name before a tools/list round-trip).
	if strings.HasPrefix(exposedName, resourceScheme) {
		rest := strings.TrimPrefix(exposedName, resourceScheme)
		slug, original, ok := strings.Cut(rest, "/")
		if !ok {
			return "", "", "", fmt.Errorf("malformed resource uri: %s", exposedName)
		}
		if serverName, ok := nt.serverIDForSlug(slug); ok {
			return serverName, original, "resource", nil
		}
		return "", "", "", fmt.Errorf("unknown server slug in resource uri: %s", exposedName)
	}

	slug, original, ok := strings.Cut(exposedName, ".")
	if !ok {
		return "", "", "", fmt.Errorf("unknown name: %s", exposedName)
	}
	if serverName, ok := nt.serverIDForSlug(slug); ok {
		return serverName, original, "tool", nil
	}
	return "", "", "", fmt.Errorf("unknown name: %s", exposedName)
}

func (nt *NameTracker) serverIDForSlug(slug string) (string, bool) {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	for serverName, s := range nt.serverSlugs {
		if s == slug {
			return serverName, true
		}
	}
	return "", false
}

// RebuildMappings is kept for compatibility with callers that refresh the
// registry wholesale; mappings are rebuilt incrementally as names are
// exposed, so this is a no-op.
func (nt *NameTracker) RebuildMappings(servers map[string]*ServerInfo) {}
