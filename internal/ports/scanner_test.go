package ports

import (
	"testing"

	"github.com/mikey/llm-scam-scanner/internal/core"
)

func TestCoordinatorIsScanner(t *testing.T) {
	var _ Scanner = (*core.Coordinator)(nil)
}
