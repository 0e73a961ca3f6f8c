// Package idgen выдаёт уникальные int64-идентификаторы позиций корзины.
package idgen

import (
	"fmt"
	"hash/fnv"
	"os"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Generator выдаёт новые идентификаторы.
type Generator interface {
	Next() int64
}

// Snowflake — генератор на базе bwmarrin/snowflake; ID монотонно растут в пределах узла.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake создаёт генератор для узла nodeID (0-1023).
func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID & 0x3FF)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &Snowflake{node: node}, nil
}

// Next возвращает новый идентификатор.
func (s *Snowflake) Next() int64 {
	return s.node.Generate().Int64()
}

var (
	defaultOnce sync.Once
	defaultGen  *Snowflake
)

// Default возвращает общий генератор с номером узла из хэша hostname.
func Default() *Snowflake {
	defaultOnce.Do(func() {
		host, _ := os.Hostname()
		h := fnv.New32a()
		_, _ = h.Write([]byte(host))
		gen, err := NewSnowflake(int64(h.Sum32()))
		if err != nil {
			gen, _ = NewSnowflake(1)
		}
		defaultGen = gen
	})
	return defaultGen
}

// Sequence — детерминированный генератор для тестов.
type Sequence struct {
	mu   sync.Mutex
	next int64
}

// NewSequence начинает последовательность с start.
func NewSequence(start int64) *Sequence {
	return &Sequence{next: start}
}

func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}
