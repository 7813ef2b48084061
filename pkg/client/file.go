package client

import (
	"context"
	"fmt"
	"os"

	"github.com/vanderheijden86/caseview/pkg/metrics"
	"github.com/vanderheijden86/caseview/pkg/model"
)

// FileSource reads a saved model-json document instead of calling the server.
// The ref is ignored apart from its model type.
type FileSource struct {
	Path string
}

// ModelJSON implements ModelSource.
func (f FileSource) ModelJSON(ctx context.Context, ref Ref) (*model.Diagram, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.ModelFetch)()
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return model.Decode(data, ref.modelType())
}
