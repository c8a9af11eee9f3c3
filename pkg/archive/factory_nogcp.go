//go:build !gcp

package archive

import (
	"context"
	"fmt"
)

func newGCSSinkFromEnv(ctx context.Context) (Sink, error) {
	return nil, fmt.Errorf("archive: gcs sink is not enabled in this build (use -tags gcp)")
}
