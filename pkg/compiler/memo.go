package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/foundersclub/formflow/pkg/model"
)

// Fingerprint computes the identity hash of a schema: the SHA-256 of its
// canonical JSON encoding. Two schemas with the same fingerprint compile to
// checkers with identical behaviour.
func Fingerprint(schema model.FormSchema) (string, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("compiler: fingerprint schema: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Compiler memoizes Compile by schema fingerprint so validators are rebuilt
// only when the schema itself changes, not on every request or keystroke.
// Safe for concurrent use.
type Compiler struct {
	mu    sync.Mutex
	cache map[string]*Compiled
}

// NewCompiler returns an empty memoizing compiler.
func NewCompiler() *Compiler {
	return &Compiler{cache: make(map[string]*Compiled)}
}

// Get returns the compiled form of schema, reusing a previous compilation
// when the fingerprint matches.
func (c *Compiler) Get(schema model.FormSchema) (*Compiled, error) {
	fingerprint, err := Fingerprint(schema)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if compiled, ok := c.cache[fingerprint]; ok {
		return compiled, nil
	}
	compiled, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	c.cache[fingerprint] = compiled
	return compiled, nil
}

// Size reports how many compiled schemas are cached.
func (c *Compiler) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
