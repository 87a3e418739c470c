// Package step runs multi-step mailbox writes such as append-then-delete.
package step

import (
	"fmt"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Step is one named transport action
type Step struct {
	Name string
	Run  func() error
}

// Op describes the operation a sequence of steps carries out
type Op struct {
	Name string
	Key  types.MessageKey
}

// Sequencer runs the steps of an operation in order
type Sequencer interface {
	Run(op Op, steps ...Step) error
}

// Sequential runs steps in order and stops at the first failure.
// Steps that already ran are not undone.
type Sequential struct{}

// Run implements Sequencer
func (Sequential) Run(op Op, steps ...Step) error {
	for _, s := range steps {
		if err := s.Run(); err != nil {
			return fmt.Errorf("failed to %s: %w", s.Name, err)
		}
	}
	return nil
}
