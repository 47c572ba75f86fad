package heap

import (
	"fmt"

	"github.com/osmem/heapkit/arena"
)

// Kind identifies one of the allocator implementations.
type Kind int

const (
	KindBump Kind = iota
	KindLeak
	KindNode
	KindFreeList
	KindBuddy
)

func (k Kind) String() string {
	switch k {
	case KindBump:
		return "bump"
	case KindLeak:
		return "leak"
	case KindNode:
		return "node"
	case KindFreeList:
		return "freelist"
	case KindBuddy:
		return "buddy"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a kind name, as printed by Kind.String, back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bump":
		return KindBump, nil
	case "leak":
		return KindLeak, nil
	case "node":
		return KindNode, nil
	case "freelist":
		return KindFreeList, nil
	case "buddy":
		return KindBuddy, nil
	default:
		return 0, fmt.Errorf("heap: unknown allocator kind %q", s)
	}
}

// Config selects and parameterizes an allocator for New.
type Config struct {
	// Kind selects the implementation.
	Kind Kind

	// Arena is the memory the allocator will manage. Required.
	Arena *arena.Arena

	// Strategy configures the free-list search. Ignored by other kinds.
	Strategy SearchStrategy

	// NodeSize is the slot width for the node allocator, in bytes. It must
	// be a nonzero multiple of 8 and must divide the arena size evenly.
	// Ignored by other kinds.
	NodeSize uintptr
}

// New builds the allocator described by cfg.
func New(cfg Config) (SubAllocator, error) {
	if cfg.Arena == nil {
		return nil, fmt.Errorf("heap: %v allocator: nil arena", cfg.Kind)
	}
	switch cfg.Kind {
	case KindBump:
		return NewBump(cfg.Arena)
	case KindLeak:
		return NewLeak(cfg.Arena)
	case KindNode:
		return NewNode(cfg.Arena, cfg.NodeSize)
	case KindFreeList:
		return NewFreeList(cfg.Arena, cfg.Strategy)
	case KindBuddy:
		return NewBuddy(cfg.Arena)
	default:
		return nil, fmt.Errorf("heap: unknown allocator kind %d", int(cfg.Kind))
	}
}
