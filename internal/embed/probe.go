package embed

import (
	"context"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// probeText is embedded once to learn the dimension of an unknown model.
const probeText = "dimension probe"

// probeDimensions embeds a single text and reports the vector length.
func probeDimensions(ctx context.Context, b batcher, send sendFunc) (int, error) {
	vecs, err := b.embed(ctx, []string{probeText}, 0, send)
	if err != nil {
		return 0, err
	}
	if len(vecs[0]) == 0 {
		return 0, dmerrors.ProviderUnavailable(b.provider, "returned an empty embedding", nil).
			WithRetryable(false)
	}
	return len(vecs[0]), nil
}
