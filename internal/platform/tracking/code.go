// Package tracking issues the external tracking codes printed on sample bags.
package tracking

import (
	"strings"

	"github.com/google/uuid"
)

// Generator produces tracking codes. UUIDs keep codes unique across contests
// without coordinating with the database.
type Generator struct {
	prefix string
}

func NewGenerator() *Generator {
	return &Generator{prefix: "CC"}
}

// New returns a short human-transcribable code, e.g. CC-9F1C2B3D.
func (g *Generator) New() string {
	id := uuid.New()
	return g.prefix + "-" + strings.ToUpper(id.String()[:8])
}
