package person

import (
	"encoding/json"
	"fmt"
	"os"
)

// Blacklist answers whether a phone number is barred from registering.
type Blacklist interface {
	Blacklisted(phone string) bool
}

// StaticBlacklist is an in-memory phone denylist loaded at startup.
type StaticBlacklist struct {
	phones map[string]struct{}
}

// NewStaticBlacklist builds a denylist from the given phone numbers.
func NewStaticBlacklist(phones []string) *StaticBlacklist {
	set := make(map[string]struct{}, len(phones))
	for _, phone := range phones {
		set[phone] = struct{}{}
	}
	return &StaticBlacklist{phones: set}
}

// LoadBlacklistFile reads a JSON array of phone numbers from path. An empty
// path yields an empty denylist, so the check is opt-in per deployment.
func LoadBlacklistFile(path string) (*StaticBlacklist, error) {
	if path == "" {
		return NewStaticBlacklist(nil), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blacklist file: %w", err)
	}
	var phones []string
	if err := json.Unmarshal(raw, &phones); err != nil {
		return nil, fmt.Errorf("parse blacklist file: %w", err)
	}
	return NewStaticBlacklist(phones), nil
}

// Blacklisted reports whether the phone number is on the denylist.
func (b *StaticBlacklist) Blacklisted(phone string) bool {
	_, found := b.phones[phone]
	return found
}
