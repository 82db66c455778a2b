package errors

import (
	"sort"
	"sync"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

var (
	registryMu sync.RWMutex

	// registry maps error codes to their templates.
	registry = map[string]ErrorTemplate{
		// ============================================
		// Input Errors (E100-E109)
		// ============================================

		"E100": {
			Category:   CategoryInput,
			Message:    "Malformed widget state",
			Suggestion: "Widget value, min and max must be integers with min <= value <= max.",
		},
		"E101": {
			Category: CategoryInput,
			Message:  "Value already at boundary",
		},

		// ============================================
		// Registry Errors (E110-E119)
		// ============================================

		"E110": {
			Category:   CategoryRegistry,
			Message:    "Unknown widget",
			Suggestion: "Mount the view before dispatching events to its widgets.",
		},
		"E111": {
			Category: CategoryRegistry,
			Message:  "Widget already mounted",
		},
		"E112": {
			Category: CategoryRegistry,
			Message:  "Registry closed",
		},

		// ============================================
		// Transport Errors (E120-E129)
		// ============================================

		"E120": {
			Category: CategoryTransport,
			Message:  "Request failed",
		},
		"E121": {
			Category: CategoryTransport,
			Message:  "Server rejected request",
		},
		"E122": {
			Category: CategoryTransport,
			Message:  "Malformed fragment",
		},
		"E123": {
			Category:   CategoryTransport,
			Message:    "Fragment does not contain the target modal",
			Suggestion: "The fragment endpoint must render an element whose id matches the modal.",
		},

		// ============================================
		// Config Errors (E130-E139)
		// ============================================

		"E130": {
			Category: CategoryConfig,
			Message:  "Invalid configuration",
		},
		"E131": {
			Category: CategoryConfig,
			Message:  "Configuration file unreadable",
		},
	}
)

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces an error template.
func Register(code string, template ErrorTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = template
}
